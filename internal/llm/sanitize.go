package llm

import (
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// synonyms maps keys models tend to emit onto scheme_header.json names.
var synonyms = []struct{ from, to string }{
	{"scheme_sub_type", "scheme_subtype"},
	{"sub_type", "scheme_subtype"},
	{"duration_start_date", "start_date"},
	{"duration_end_date", "end_date"},
	{"starting_at", "start_date"},
	{"ending_at", "end_date"},
	{"global_cap_amount", "max_cap"},
	{"min_actual_or_agreed", "minimum_of_actual_discount_or_agreed_claim"},
	{"description", "additional_conditions"},
	{"fsn_file", "fsn_file_config_file"},
}

var yesNoFields = []string{
	"fsn_file_config_file",
	"minimum_of_actual_discount_or_agreed_claim",
	"over_and_above",
	"scheme_document",
}

// NormalizeAndSanitizeJSON brings one raw scheme object into the shape
// the schema expects:
//   - renames known synonyms (first writer wins)
//   - lifts vendor_name out of a vendors array
//   - coerces numbers and booleans to strings for text fields
//   - fills scheme_type/scheme_subtype, Yes/No flags and confidence defaults
//   - removes unknown keys
//
// It returns the keys it dropped or renamed.
func NormalizeAndSanitizeJSON(in map[string]any, logger *slog.Logger) (map[string]any, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	m := maps.Clone(in)
	dropped := make([]string, 0, 8)

	for _, s := range synonyms {
		v, ok := m[s.from]
		if !ok {
			continue
		}
		if cur, exists := m[s.to]; !exists || cur == nil {
			m[s.to] = v
		}
		delete(m, s.from)
		dropped = append(dropped, s.from+"->"+s.to)
	}

	if _, ok := m["vendor_name"]; !ok {
		if vs, ok := m["vendors"].([]any); ok && len(vs) > 0 {
			if v0, ok := vs[0].(map[string]any); ok {
				if name, ok := v0["vendor_name"].(string); ok && strings.TrimSpace(name) != "" {
					m["vendor_name"] = name
				}
			}
		}
	}

	allowed := SchemeFields()
	for k, v := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		switch k {
		case "confidence", "needs_escalation":
			continue
		}
		s, keep := toText(v)
		if !keep {
			m[k] = nil
			continue
		}
		m[k] = s
	}

	for _, k := range []string{"scheme_type", "scheme_subtype"} {
		if s, _ := m[k].(string); strings.TrimSpace(s) == "" {
			m[k] = "OTHER"
		}
	}
	if s, _ := m["scheme_period"].(string); s == "" {
		m["scheme_period"] = "Duration"
	}
	for _, k := range yesNoFields {
		m[k] = yesNoOr(m[k], "No")
	}
	if v, ok := m["best_bet"]; ok && v != nil {
		m["best_bet"] = yesNoOr(v, "No")
	}
	if v, ok := m["remove_gst_from_final_claim"]; ok && v != nil {
		s := v.(string)
		if yn, ok := parseYesNo(s); ok {
			m["remove_gst_from_final_claim"] = yn
		} else if strings.EqualFold(strings.TrimSpace(s), "not specified") {
			m["remove_gst_from_final_claim"] = "Not Specified"
		}
	}

	switch c := m["confidence"].(type) {
	case float64:
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			m["confidence"] = f
		} else {
			m["confidence"] = DefaultConfidence
		}
	default:
		m["confidence"] = DefaultConfidence
	}
	if _, ok := m["needs_escalation"].(bool); !ok {
		delete(m, "needs_escalation")
	}

	if len(dropped) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return m, dropped
}

// toText renders a JSON scalar as text; null, blank and "null" become
// (nil, false).
func toText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		if t {
			return "Yes", true
		}
		return "No", true
	default:
		return fmt.Sprint(t), true
	}
}

func parseYesNo(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return "Yes", true
	case "no", "n", "false", "0":
		return "No", true
	}
	return "", false
}

func yesNoOr(v any, def string) string {
	s, _ := v.(string)
	if yn, ok := parseYesNo(s); ok {
		return yn
	}
	return def
}
