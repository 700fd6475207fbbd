package llm

import (
	"regexp"
	"strings"

	"github.com/pranayab18/Data-Extraction/constants"
)

type keywordRule struct {
	sub      constants.SubType
	keywords []string
	patterns []*regexp.Regexp
}

// Order breaks ties: the more specific sub type wins.
var classificationRules = compileRules([]keywordRule{
	{sub: constants.SubOneOff, keywords: []string{"one-off", "one off", "one off claim", "one-off sales support", "one time support", "one time claim", "lump sum", "lumpsum"}},
	{sub: constants.SubPDC, keywords: []string{"price drop", "price protection", "pp", "pdc", "cost reduction", "nlc change", "cost change", "sellin price drop", "invoice cost correction", "backward margin", "revision in buy price"}},
	{sub: constants.SubCoupon, keywords: []string{"coupon", "vpc", "promo code", "offer code", "discount coupon"}},
	{sub: constants.SubSuperCoin, keywords: []string{"super coin", "supercoin", "sc funding"}},
	{sub: constants.SubPrexo, keywords: []string{"exchange", "prexo", "upgrade", "bump up", "bup", "product exchange"}},
	{sub: constants.SubBankOffer, keywords: []string{"bank offer", "card offer", "hdfc offer", "axis offer", "sbi offer", "bank cashback"}},
	{sub: constants.SubPUCFDC, keywords: []string{"sellout", "sell out", "sell-side", "puc", "cp", "fdc", "pricing support", "rest all support", "discount on selling price", "channel support", "market support"}},
	{sub: constants.SubPeriodicClaim, keywords: []string{"jbp", "joint business plan", "tot", "terms of trade", "sell in", "sell-in", "sellin", "buy side", "buyside", "periodic", "quarter", "q1", "q2", "q3", "q4", "annual", "fy", "yearly support", "marketing support", "gmv support", "nrv", "nrv-linked", "inwards", "net inwards", "inventory support", "business plan", "commercial alignment", "funding for fy"}},
	{sub: constants.SubLifestyle, keywords: []string{"lifestyle"}},
})

var eventKeywords = compileKeywords([]string{"big billion days", "bbd", "tbbd", "republic day sale", "eoss", "end of season sale", "sale event"})

func compileRules(rules []keywordRule) []keywordRule {
	for i := range rules {
		rules[i].patterns = compileKeywords(rules[i].keywords)
	}
	return rules
}

func compileKeywords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

// ClassifyScheme picks the sub type with the most keyword hits in text
// and returns it with its parent scheme type. No hits means OTHER/OTHER.
func ClassifyScheme(text string) (constants.SchemeType, constants.SubType) {
	text = strings.TrimSpace(text)
	if text == "" {
		return constants.SchemeOther, constants.SubOther
	}
	best, bestHits := constants.SubOther, 0
	for _, r := range classificationRules {
		hits := 0
		for _, re := range r.patterns {
			hits += len(re.FindAllStringIndex(text, -1))
		}
		if hits > bestHits {
			best, bestHits = r.sub, hits
		}
	}
	return constants.ParentOf[best], best
}

// IsEvent reports whether text names a sale event rather than a plain period.
func IsEvent(text string) bool {
	for _, re := range eventKeywords {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
