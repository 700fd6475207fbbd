package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/pranayab18/Data-Extraction/constants"
)

// MaxBodyChars caps the mail body sent to the model.
const MaxBodyChars = 15000

// BuildSystemPrompt composes the extraction instructions: output format,
// classification keywords, and field rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You help prepare Flipkart Retailer Hub scheme headers from brand emails.",
		"You are given a JSON object with mail_subject and mail_body (plain text plus pasted tables).",
		"Identify every distinct scheme or claim in the mail and return ONLY a JSON object, no commentary or markdown:",
		schemeFormat,
		"If the mail describes several distinct claims (for example one for June'25 and one for May'25), return one entry per claim.",
		"Classification, case-insensitive, using subject and body: " + classificationRubric(),
		"If several categories appear, choose the most specific one based on the main money-approved lines. If nothing matches use OTHER/OTHER.",
		"scheme_name is usually the cleaned subject. scheme_description is a 1-2 sentence summary. additional_conditions holds caps, exclusions and special terms.",
		"scheme_period is Event for named sale events (Big Billion Days, Republic Day sale, EOSS), otherwise Duration.",
		"Dates are DD/MM/YYYY. When only a month is given use its first and last day. Unknown dates are null.",
		"discount_type is one of: Percentage of MRP, Percentage of NLC, Absolute, Other.",
		"max_cap is the cap for the whole scheme as a number, or null. minimum_of_actual_discount_or_agreed_claim is Yes only when a cap exists.",
		"brand_support_absolute is the approved lump-sum amount for ONE_OFF schemes, else null. gst_rate is the GST percentage when stated, else null.",
		"remove_gst_from_final_claim is Yes when the amount is inclusive of GST, No when exclusive or not mentioned.",
		"over_and_above is Yes only for support explicitly additional to an existing scheme. best_bet is Yes only when called out.",
		"fsn_file_config_file is Yes when FSN or config files are attached. scheme_document is Yes when a formal approval document is present.",
		"confidence is your 0.0-1.0 confidence in the extraction.",
		"Never invent details the mail contradicts. Use null, not 0, for unknown numbers.",
	}
	return strings.Join(parts, "\n")
}

const schemeFormat = `{"schemes": [{
  "scheme_name": "string", "scheme_description": "string", "vendor_name": "string or null",
  "scheme_type": "BUY_SIDE | SELL_SIDE | ONE_OFF | OTHER",
  "scheme_subtype": "PERIODIC_CLAIM | PDC | PUC_FDC | COUPON | SUPER_COIN | PREXO | BANK_OFFER | LIFESTYLE | ONE_OFF | OTHER",
  "scheme_period": "Duration | Event", "duration": "DD/MM/YYYY to DD/MM/YYYY or null",
  "start_date": "DD/MM/YYYY or null", "end_date": "DD/MM/YYYY or null", "price_drop_date": "DD/MM/YYYY or null",
  "discount_type": "string or null", "max_cap": "number or null", "discount_slab_type": "Flat | Quantity_Slab | Value_Slab | Other",
  "brand_support_absolute": "number or null", "gst_rate": "number or null", "additional_conditions": "string or null",
  "fsn_file_config_file": "Yes | No", "minimum_of_actual_discount_or_agreed_claim": "Yes | No",
  "remove_gst_from_final_claim": "Yes | No", "over_and_above": "Yes | No", "scheme_document": "Yes | No",
  "best_bet": "Yes | No", "confidence": 0.0
}]}`

func classificationRubric() string {
	var b strings.Builder
	for _, r := range classificationRules {
		b.WriteString(string(r.sub))
		b.WriteString(" (")
		b.WriteString(string(constants.ParentOf[r.sub]))
		b.WriteString("): ")
		b.WriteString(strings.Join(r.keywords, ", "))
		b.WriteString("; ")
	}
	return strings.TrimSuffix(b.String(), "; ")
}

// BuildUserPrompt encodes the mail as {"mail_subject", "mail_body"} with
// the body truncated to MaxBodyChars.
func BuildUserPrompt(subject, body string) string {
	if utf8.RuneCountInString(body) > MaxBodyChars {
		body = string([]rune(body)[:MaxBodyChars])
	}
	b, _ := json.Marshal(struct {
		Subject string `json:"mail_subject"`
		Body    string `json:"mail_body"`
	}{strings.TrimSpace(subject), body})
	return string(b)
}
