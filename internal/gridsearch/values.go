package gridsearch

import (
	"strings"

	"github.com/pranayab18/Data-Extraction/constants"
)

var notFoundPhrases = []string{
	"not specified",
	"not found",
	"no information",
	"does not contain",
	"no value",
	"not mentioned",
	"no specific",
	"unable to extract",
	"does not provide",
	"no date",
	"no scheme",
	"no discount",
	"no cap",
}

var verboseNotFound = []string{"document does not", "not find", "no mention"}

// CleanValue normalizes a raw model answer for field. ok is false when the
// answer means the value is absent, or when an enum field matched nothing.
func CleanValue(value, field string) (string, bool) {
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	if value == "" {
		return "", false
	}
	lower := strings.ToLower(value)

	if len(lower) > 50 {
		for _, p := range verboseNotFound {
			if strings.Contains(lower, p) {
				return "", false
			}
		}
	}
	for _, p := range notFoundPhrases {
		if lower == p {
			return "", false
		}
		if len(value) < 100 && strings.Contains(lower, p) && !strings.Contains(lower, "yes") {
			return "", false
		}
	}

	switch field {
	case "scheme_type":
		return matchEnum(value, schemeTypes, func(v string) (string, bool) {
			t, ok := constants.CanonicalizeSchemeType(v)
			return string(t), ok && t != constants.SchemeOther
		})
	case "sub_type":
		return matchEnum(value, subTypes, func(v string) (string, bool) {
			t, ok := constants.CanonicalizeSubType(v)
			return string(t), ok && t != constants.SubOther
		})
	}
	return value, true
}

var schemeTypes = []string{
	string(constants.SchemeBuySide),
	string(constants.SchemeSellSide),
	string(constants.SchemeOneOff),
}

var subTypes = []string{
	string(constants.SubPeriodicClaim),
	string(constants.SubPDC),
	string(constants.SubOneOff),
	string(constants.SubCoupon),
	string(constants.SubPUCFDC),
	string(constants.SubPrexo),
	string(constants.SubSuperCoin),
	string(constants.SubBankOffer),
	string(constants.SubLifestyle),
}

// matchEnum returns the first allowed value contained in v, else whatever the
// synonym lookup finds.
func matchEnum(v string, allowed []string, synonym func(string) (string, bool)) (string, bool) {
	upper := strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(strings.ToUpper(v))
	for _, a := range allowed {
		if strings.Contains(upper, a) {
			return a, true
		}
	}
	if s, ok := synonym(v); ok {
		return s, true
	}
	return "", false
}
