package constants

import (
	"strings"
)

// SchemeType is the top-level classification of a vendor scheme.
type SchemeType string

const (
	SchemeBuySide  SchemeType = "BUY_SIDE"
	SchemeSellSide SchemeType = "SELL_SIDE"
	SchemeOneOff   SchemeType = "ONE_OFF"
	SchemeOther    SchemeType = "OTHER"
)

// SubType refines a SchemeType.
type SubType string

const (
	SubPeriodicClaim SubType = "PERIODIC_CLAIM"
	SubPDC           SubType = "PDC"
	SubPUCFDC        SubType = "PUC_FDC"
	SubCoupon        SubType = "COUPON"
	SubSuperCoin     SubType = "SUPER_COIN"
	SubPrexo         SubType = "PREXO"
	SubBankOffer     SubType = "BANK_OFFER"
	SubLifestyle     SubType = "LIFESTYLE"
	SubOneOff        SubType = "ONE_OFF"
	SubOther         SubType = "OTHER"
)

var allSchemeTypes = []SchemeType{SchemeBuySide, SchemeSellSide, SchemeOneOff, SchemeOther}

var allSubTypes = []SubType{
	SubPeriodicClaim,
	SubPDC,
	SubPUCFDC,
	SubCoupon,
	SubSuperCoin,
	SubPrexo,
	SubBankOffer,
	SubLifestyle,
	SubOneOff,
	SubOther,
}

// ParentOf maps each sub type to the scheme type it belongs to.
var ParentOf = map[SubType]SchemeType{
	SubPeriodicClaim: SchemeBuySide,
	SubPDC:           SchemeBuySide,
	SubPUCFDC:        SchemeSellSide,
	SubCoupon:        SchemeSellSide,
	SubSuperCoin:     SchemeSellSide,
	SubPrexo:         SchemeSellSide,
	SubBankOffer:     SchemeSellSide,
	SubLifestyle:     SchemeSellSide,
	SubOneOff:        SchemeOneOff,
	SubOther:         SchemeOther,
}

func SchemeTypeStrings() []string {
	result := make([]string, len(allSchemeTypes))
	for i, t := range allSchemeTypes {
		result[i] = string(t)
	}
	return result
}

func SubTypeStrings() []string {
	result := make([]string, len(allSubTypes))
	for i, t := range allSubTypes {
		result[i] = string(t)
	}
	return result
}

func canonicalKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalizeSchemeType maps free-form model output onto a SchemeType.
func CanonicalizeSchemeType(input string) (SchemeType, bool) {
	key := canonicalKey(input)
	if key == "" {
		return SchemeOther, false
	}

	synonyms := map[string]SchemeType{
		"buyside":  SchemeBuySide,
		"sellside": SchemeSellSide,
		"oneoff":   SchemeOneOff,
		"one time": SchemeOneOff,
	}
	if t, ok := synonyms[key]; ok {
		return t, true
	}
	for _, t := range allSchemeTypes {
		if key == canonicalKey(string(t)) {
			return t, true
		}
	}
	return SchemeOther, false
}

// CanonicalizeSubType maps free-form model output onto a SubType.
func CanonicalizeSubType(input string) (SubType, bool) {
	key := canonicalKey(input)
	if key == "" {
		return SubOther, false
	}

	synonyms := map[string]SubType{
		"puc":              SubPUCFDC,
		"fdc":              SubPUCFDC,
		"sellout":          SubPUCFDC,
		"periodic":         SubPeriodicClaim,
		"jbp":              SubPeriodicClaim,
		"price drop":       SubPDC,
		"price drop claim": SubPDC,
		"price protection": SubPDC,
		"supercoin":        SubSuperCoin,
		"super coins":      SubSuperCoin,
		"bank":             SubBankOffer,
		"exchange":         SubPrexo,
		"coupons":          SubCoupon,
		"vpc":              SubCoupon,
		"oneoff":           SubOneOff,
		"one off claim":    SubOneOff,
		"one time":         SubOneOff,
		"lump sum":         SubOneOff,
	}
	if t, ok := synonyms[key]; ok {
		return t, true
	}
	for _, t := range allSubTypes {
		if key == canonicalKey(string(t)) {
			return t, true
		}
	}
	return SubOther, false
}
