package llm

import (
	"strings"

	"github.com/pranayab18/Data-Extraction/constants"
)

const (
	DiscountNLC      = "Percentage of NLC"
	DiscountMRP      = "Percentage of MRP"
	DiscountAbsolute = "Absolute"
	DiscountOther    = "Other"

	NotSpecified  = "Not Specified"
	NotApplicable = "Not Applicable"
)

// NormalizeScheme canonicalizes enums, classifies by keyword when the
// model left the type open, applies defaults and computes the id.
func NormalizeScheme(h *SchemeHeader) {
	if h.DiscountType != nil {
		h.DiscountType = ptr(normalizeDiscountType(*h.DiscountType))
	}

	sub, subOK := constants.CanonicalizeSubType(h.SchemeSubtype)
	typ, typOK := constants.CanonicalizeSchemeType(h.SchemeType)
	if !subOK {
		sub = constants.SubOther
	}
	if !typOK {
		typ = constants.SchemeOther
	}
	if sub != constants.SubOther {
		// The sub type decides the parent.
		typ = constants.ParentOf[sub]
	}
	if sub == constants.SubOther && typ == constants.SchemeOther {
		typ, sub = ClassifyScheme(deref(h.SchemeName) + "\n" + deref(h.SchemeDescription) + "\n" + deref(h.AdditionalConditions))
	}
	if typ == constants.SchemeOneOff && sub == constants.SubOther {
		sub = constants.SubOneOff
	}
	h.SchemeType, h.SchemeSubtype = string(typ), string(sub)

	switch strings.ToLower(strings.TrimSpace(h.SchemePeriod)) {
	case "event":
		h.SchemePeriod = "Event"
	case "duration":
		h.SchemePeriod = "Duration"
	default:
		if IsEvent(deref(h.SchemeName) + " " + deref(h.SchemeDescription)) {
			h.SchemePeriod = "Event"
		} else {
			h.SchemePeriod = "Duration"
		}
	}
	if h.Duration == nil && h.StartDate != nil && h.EndDate != nil {
		h.Duration = ptr(*h.StartDate + " to " + *h.EndDate)
	}

	if h.MaxCap == nil {
		h.MaxCap = ptr(NotSpecified)
	}
	if h.BrandSupportAbsolute == nil {
		h.BrandSupportAbsolute = ptr(NotApplicable)
	}
	if h.GSTRate == nil {
		h.GSTRate = ptr(NotApplicable)
	}
	if h.BestBet == nil {
		h.BestBet = ptr("No")
	}
	for _, f := range []*string{&h.FSNFileConfigFile, &h.MinimumOfActualOrAgreed, &h.OverAndAbove, &h.SchemeDocument} {
		if *f != "Yes" {
			*f = "No"
		}
	}

	h.Confidence = clamp01(h.Confidence)
	if h.Confidence < EscalationThreshold {
		h.NeedsEscalation = true
	}
	h.SchemeID = h.ComputeID()
}

func normalizeDiscountType(s string) string {
	switch s {
	case DiscountNLC, DiscountMRP, DiscountAbsolute, DiscountOther:
		return s
	}
	low := strings.ToLower(s)
	switch {
	case strings.Contains(low, "nlc"):
		return DiscountNLC
	case strings.Contains(low, "mrp"):
		return DiscountMRP
	case strings.Contains(low, "absolute"), strings.Contains(low, "flat"):
		return DiscountAbsolute
	}
	return s
}
