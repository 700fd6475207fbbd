package common

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// ValidationError is one rejected setting or grid value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s=%v %s", e.Field, e.Value, e.Message)
}

// ValidationRule checks one value; nil means it passed.
type ValidationRule func(field string, value any) *ValidationError

// Validator accumulates rule failures so callers can report every bad
// setting at once instead of stopping at the first.
type Validator struct {
	failed []ValidationError
}

func NewValidator() *Validator { return &Validator{} }

// Field applies rules to value and records each failure. It returns v so
// calls can be chained.
func (v *Validator) Field(field string, value any, rules ...ValidationRule) *Validator {
	for _, check := range rules {
		if ve := check(field, value); ve != nil {
			v.failed = append(v.failed, *ve)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []ValidationError { return v.failed }

// ErrorMessage joins every failure with "; ". Empty when nothing failed.
func (v *Validator) ErrorMessage() string {
	parts := make([]string, len(v.failed))
	for i, ve := range v.failed {
		parts[i] = ve.Error()
	}
	return strings.Join(parts, "; ")
}

// Error wraps ErrValidation, or returns nil when every rule passed.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

func fail(field string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// Required rejects nil, blank strings and empty slices.
func Required(field string, value any) *ValidationError {
	switch x := value.(type) {
	case nil:
		return fail(field, value, "is required")
	case string:
		if strings.TrimSpace(x) == "" {
			return fail(field, value, "is required")
		}
	case *string:
		if x == nil || strings.TrimSpace(*x) == "" {
			return fail(field, value, "is required")
		}
	default:
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Slice && rv.Len() == 0 {
			return fail(field, value, "must not be empty")
		}
	}
	return nil
}

func PositiveInt(field string, value any) *ValidationError {
	n, ok := value.(int)
	switch {
	case !ok:
		return fail(field, value, "must be an integer")
	case n <= 0:
		return fail(field, value, "must be greater than zero")
	}
	return nil
}

func IntRange(lo, hi int) ValidationRule {
	return func(field string, value any) *ValidationError {
		n, ok := value.(int)
		if !ok {
			return fail(field, value, "must be an integer")
		}
		if n < lo || n > hi {
			return fail(field, value, "must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func FloatRange(lo, hi float64) ValidationRule {
	return func(field string, value any) *ValidationError {
		f, ok := value.(float64)
		if !ok {
			return fail(field, value, "must be a number")
		}
		if f < lo || f > hi {
			return fail(field, value, "must be between %g and %g", lo, hi)
		}
		return nil
	}
}

// MaxLength counts runes. Non-string values pass.
func MaxLength(limit int) ValidationRule {
	return func(field string, value any) *ValidationError {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > limit {
			return fail(field, value, "must be at most %d characters", limit)
		}
		return nil
	}
}

// OneOf matches case-insensitively after trimming.
func OneOf(allowed ...string) ValidationRule {
	return func(field string, value any) *ValidationError {
		s, ok := value.(string)
		if !ok {
			return fail(field, value, "must be a string")
		}
		s = strings.TrimSpace(s)
		for _, a := range allowed {
			if strings.EqualFold(s, a) {
				return nil
			}
		}
		return fail(field, value, "must be one of: %s", strings.Join(allowed, ", "))
	}
}
