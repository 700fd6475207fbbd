package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

// ParseSchemes decodes model output into raw scheme objects. It accepts
// {"schemes": [...]}, a bare list, or a single scheme object, with or
// without markdown code fences.
func ParseSchemes(content string) ([]map[string]any, error) {
	cleaned := strings.TrimSpace(openrouter.StripCodeFences(content))
	if cleaned == "" {
		return nil, fmt.Errorf("empty model output")
	}
	// Tolerate prose around the JSON payload.
	if i := strings.IndexAny(cleaned, "{["); i > 0 {
		cleaned = cleaned[i:]
	}

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		trimmed := trimTrailingProse(cleaned)
		if trimmed == cleaned || json.Unmarshal([]byte(trimmed), &data) != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	}

	var list []any
	switch v := data.(type) {
	case []any:
		list = v
	case map[string]any:
		if s, ok := v["schemes"]; ok {
			l, ok := s.([]any)
			if !ok {
				return nil, fmt.Errorf("\"schemes\" is %T, want array", s)
			}
			list = l
		} else if _, ok := v["scheme_name"]; ok {
			list = []any{v}
		} else if _, ok := v["scheme_type"]; ok {
			list = []any{v}
		} else {
			return nil, fmt.Errorf("json missing \"schemes\" key")
		}
	default:
		return nil, fmt.Errorf("unexpected json %T", data)
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func trimTrailingProse(s string) string {
	closer := "}"
	if strings.HasPrefix(s, "[") {
		closer = "]"
	}
	if i := strings.LastIndex(s, closer); i >= 0 {
		return s[:i+1]
	}
	return s
}
