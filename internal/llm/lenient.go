package llm

import (
	"slices"
	"unicode/utf8"
)

const maxSchemeNameRunes = 500

// SanitizeOptionalFields repairs values the strict schema rejects so the
// scheme can still validate. It never touches scheme_type/scheme_subtype
// beyond forcing them to strings.
func SanitizeOptionalFields(m map[string]any) (map[string]any, []string) {
	var changed []string

	for _, k := range []string{"scheme_type", "scheme_subtype", "scheme_period"} {
		if _, ok := m[k].(string); !ok {
			if k == "scheme_period" {
				m[k] = "Duration"
			} else {
				m[k] = "OTHER"
			}
			changed = append(changed, k)
		}
	}

	for _, k := range yesNoFields {
		if s, _ := m[k].(string); s != "Yes" && s != "No" {
			m[k] = "No"
			changed = append(changed, k)
		}
	}
	if v, ok := m["best_bet"]; ok && v != nil && v != "Yes" && v != "No" {
		m["best_bet"] = nil
		changed = append(changed, "best_bet")
	}
	if v, ok := m["remove_gst_from_final_claim"]; ok && v != nil {
		if s, _ := v.(string); !slices.Contains([]string{"Yes", "No", "Not Specified"}, s) {
			m["remove_gst_from_final_claim"] = nil
			changed = append(changed, "remove_gst_from_final_claim")
		}
	}

	if c, ok := m["confidence"].(float64); ok {
		if clamped := clamp01(c); clamped != c {
			m["confidence"] = clamped
			changed = append(changed, "confidence")
		}
	} else {
		m["confidence"] = DefaultConfidence
		changed = append(changed, "confidence")
	}

	if s, ok := m["scheme_name"].(string); ok && utf8.RuneCountInString(s) > maxSchemeNameRunes {
		m["scheme_name"] = string([]rune(s)[:maxSchemeNameRunes])
		changed = append(changed, "scheme_name")
	}

	// Anything else that is not a string or null goes.
	for k, v := range m {
		switch k {
		case "confidence", "needs_escalation":
			continue
		}
		switch v.(type) {
		case string, nil:
		default:
			m[k] = nil
			changed = append(changed, k)
		}
	}
	if _, ok := m["needs_escalation"]; ok {
		if _, isBool := m["needs_escalation"].(bool); !isBool {
			delete(m, "needs_escalation")
			changed = append(changed, "needs_escalation")
		}
	}
	return m, changed
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
