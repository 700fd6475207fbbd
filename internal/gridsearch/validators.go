package gridsearch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var textLimits = map[string]int{
	"duration":           100,
	"scheme_name":        200,
	"vendor_name":        200,
	"scheme_description": 1000,
}

// ValidateFields checks every extracted value and returns the cleaned map
// together with one message per rejected value. Rejected values are kept
// as extracted.
func ValidateFields(data map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(data))
	var errs []string

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		cleaned, err := ValidateField(k, data[k])
		if err != nil {
			out[k] = data[k]
			errs = append(errs, err.Error())
			continue
		}
		out[k] = cleaned
	}
	return out, errs
}

// ValidateField dispatches on the field name. Unknown fields pass through.
func ValidateField(field string, value any) (any, error) {
	switch {
	case field == "start_date" || field == "end_date" || field == "price_drop_date":
		return validateDate(field, value)
	case field == "scheme_type":
		return validateEnum(field, value, schemeTypes)
	case field == "sub_type":
		return validateEnum(field, value, subTypes)
	case IsYesNo(field):
		return validateYesNo(field, value)
	case field == "gst_rate":
		return validateNumber(field, value, floatPtr(0), floatPtr(100))
	case field == "max_cap":
		return validateNumber(field, value, floatPtr(0), nil)
	}
	if max, ok := textLimits[field]; ok {
		return validateLength(field, value, max)
	}
	return value, nil
}

func validateDate(field string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s: expected string, got %T", field, value)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	if strings.Contains(strings.ToLower(s), " to ") {
		return s, nil
	}
	return nil, fmt.Errorf("%s: invalid date format '%s'", field, s)
}

func validateEnum(field string, value any, allowed []string) (any, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s: expected string, got %T", field, value)
	}
	norm := strings.NewReplacer("/", "_", "-", "_").Replace(strings.ToUpper(strings.TrimSpace(s)))
	for _, a := range allowed {
		if norm == a {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%s: '%s' not in allowed values %v", field, s, allowed)
}

func validateYesNo(field string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "No", nil
	case bool:
		if v {
			return "Yes", nil
		}
		return "No", nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "true", "1":
			return "Yes", nil
		case "no", "n", "false", "0":
			return "No", nil
		}
		return nil, fmt.Errorf("%s: expected Yes/No, got '%s'", field, v)
	}
	return nil, fmt.Errorf("%s: expected string, got %T", field, value)
}

func validateNumber(field string, value any, min, max *float64) (any, error) {
	var n float64
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		n = v
	case int:
		n = float64(v)
	case string:
		cleaned := strings.NewReplacer(",", "", "₹", "", "$", "", "%", "").Replace(strings.TrimSpace(v))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot parse '%s' as number", field, v)
		}
		n = f
	default:
		return nil, fmt.Errorf("%s: expected number, got %T", field, value)
	}
	if min != nil && n < *min {
		return nil, fmt.Errorf("%s: %g below minimum %g", field, n, *min)
	}
	if max != nil && n > *max {
		return nil, fmt.Errorf("%s: %g above maximum %g", field, n, *max)
	}
	return n, nil
}

func validateLength(field string, value any, max int) (any, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s: expected string, got %T", field, value)
	}
	if n := utf8.RuneCountInString(s); n > max {
		return nil, fmt.Errorf("%s: length %d above maximum %d", field, n, max)
	}
	return s, nil
}

func floatPtr(f float64) *float64 { return &f }
