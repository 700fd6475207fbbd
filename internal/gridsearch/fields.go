package gridsearch

// Field is one extraction target and the instruction sent to the model.
type Field struct {
	Name        string
	Description string
}

var catalogue = []Field{
	{"scheme_name", "Extract the scheme name as mentioned by the brand, usually from the email subject line."},
	{"scheme_description", "Capture any important conditions or notes mentioned in the brand email related to the scheme."},
	{"scheme_period", `Identify whether the scheme is a "Duration" or an "Event". Event-based schemes are rare.`},
	{"duration", `Extract the scheme validity period in the format "Start Date to End Date".`},
	{"discount_type", "Identify the type of discount mentioned in the email: Percentage of NLC, Percentage of MRP, Absolute value"},
	{"max_cap", "Extract any maximum support amount or cap specified by the brand."},
	{"vendor_name", "Identify the vendor name referenced in the mail, from vendor site details if applicable."},
	{"price_drop_date", "For PDC claims, extract the exact price drop date mentioned in the email."},
	{"start_date", "Extract the scheme start date."},
	{"end_date", "Extract the scheme end date."},
	{"fsn_file_config_file", `Return "Yes" if FSN data or an FSN file is present or needed based on the FSNs/models in the email, otherwise "No".`},
	{"min_actual_discount_or_agreed_claim", `If any commercial cap or limit is mentioned by the brand, select "Yes". Otherwise, select "No".`},
	{"remove_gst", `If the brand mentions prices inclusive of GST select "Yes". If prices are exclusive of GST select "No".`},
	{"over_and_above", `Select only if the support is additional for the same claim period and must override duplicity checks. Return "Yes" or "No".`},
	{"scheme_document", `Return "Yes" if a brand-provided document (letter, PDF, email attachment) is present.`},
	{"discount_slab_type", "For Buyside-Periodic claims, capture slab details exactly as mentioned in the brand email."},
	{"best_bet", "For Buyside-Periodic claims, identify and extract the BEST_BET information as per the mail."},
	{"brand_support_absolute", "For OFC claims only, extract the absolute brand support amount from the email."},
	{"gst_rate", "For One-Off claims, extract the GST rate mentioned in the mail and enter in percentage."},
	{"scheme_type", `Determine the Scheme Type from the business keywords in the email.
Classify the scheme as BUY_SIDE when the message mentions Buyside, Sellin, Sellin Incentive, Price Protection, PP, Price Drop, or one-off support related to the buy side.
Classify it as SELL_SIDE when the email refers to Coupon, VPC, PUC, Pricing Support, Sellout Support, CP, Product Exchange, Prexo, Prexo Bumpup, Upgrade, Super Coin, Lifestyle support, or Bank Offers.
Use ONE_OFF for one-time or standalone support that is clearly neither periodic buy side nor sell side.
Return ONLY one of: BUY_SIDE, SELL_SIDE, ONE_OFF.`},
	{"sub_type", `Determine the Sub Type once the Scheme Type is decided.
For BUY_SIDE: PERIODIC_CLAIM for Buyside, Sellin or Sellin Incentive; PDC for Price Protection, PP or Price Drop; ONE_OFF when the support is explicitly a one-off.
For SELL_SIDE: COUPON for Coupon or VPC; PUC_FDC for CP, Pricing Support, Sellout Support or generic support; PREXO for Exchange, Prexo, Bumpup, Upgrade or BUP; SUPER_COIN for super coin support; BANK_OFFER for bank-led offers; LIFESTYLE for lifestyle support.
Return one of: PERIODIC_CLAIM, PDC, ONE_OFF, COUPON, PUC_FDC, PREXO, SUPER_COIN, BANK_OFFER, LIFESTYLE.`},
}

var yesNoFields = map[string]bool{
	"fsn_file_config_file":                true,
	"min_actual_discount_or_agreed_claim": true,
	"remove_gst":                          true,
	"over_and_above":                      true,
	"scheme_document":                     true,
}

// Fields returns the catalogue in extraction order.
func Fields() []Field {
	out := make([]Field, len(catalogue))
	copy(out, catalogue)
	return out
}

func FieldNames() []string {
	out := make([]string, len(catalogue))
	for i, f := range catalogue {
		out[i] = f.Name
	}
	return out
}

func LookupField(name string) (Field, bool) {
	for _, f := range catalogue {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsYesNo reports whether the field only accepts Yes or No.
func IsYesNo(name string) bool { return yesNoFields[name] }
