package llm

var (
	yesNo       = []any{"Yes", "No"}
	yesNoMaybe  = []any{"Yes", "No", "Not Specified"}
	nullableStr = map[string]any{"type": []any{"string", "null"}}
)

// BuildSchemeJSONSchema returns the JSON-Schema one normalized scheme
// object must satisfy. Field names are the scheme_header.json names;
// synonyms are renamed before validation.
func BuildSchemeJSONSchema() map[string]any {
	props := map[string]any{
		"scheme_name":            map[string]any{"type": []any{"string", "null"}, "maxLength": 500},
		"scheme_description":     nullableStr,
		"vendor_name":            nullableStr,
		"scheme_type":            map[string]any{"type": "string", "minLength": 1},
		"scheme_subtype":         map[string]any{"type": "string", "minLength": 1},
		"scheme_period":          map[string]any{"type": "string"},
		"duration":               nullableStr,
		"start_date":             nullableStr,
		"end_date":               nullableStr,
		"price_drop_date":        nullableStr,
		"discount_type":          nullableStr,
		"max_cap":                nullableStr,
		"discount_slab_type":     nullableStr,
		"brand_support_absolute": nullableStr,
		"gst_rate":               nullableStr,
		"additional_conditions":  nullableStr,
		"fsn_file_config_file":   map[string]any{"type": "string", "enum": yesNo},
		"minimum_of_actual_discount_or_agreed_claim": map[string]any{"type": "string", "enum": yesNo},
		"remove_gst_from_final_claim":                map[string]any{"type": []any{"string", "null"}, "enum": append(append([]any{}, yesNoMaybe...), nil)},
		"over_and_above":                             map[string]any{"type": "string", "enum": yesNo},
		"scheme_document":                            map[string]any{"type": "string", "enum": yesNo},
		"best_bet":                                   map[string]any{"type": []any{"string", "null"}, "enum": []any{"Yes", "No", nil}},
		"confidence":                                 map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		"needs_escalation":                           map[string]any{"type": "boolean"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"scheme_type", "scheme_subtype"},
	}
}

// SchemeFields lists every property the scheme schema allows.
func SchemeFields() map[string]struct{} {
	props := BuildSchemeJSONSchema()["properties"].(map[string]any)
	out := make(map[string]struct{}, len(props))
	for k := range props {
		out[k] = struct{}{}
	}
	return out
}
