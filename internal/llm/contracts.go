package llm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

const (
	// DefaultConfidence applies when the model omits a score.
	DefaultConfidence = 0.7
	// EscalationThreshold flags schemes for human review below this score.
	EscalationThreshold = 0.6
)

// SchemeHeader is one vendor scheme as written to scheme_header.json.
// Nil pointers serialize as null when the model had nothing to say.
type SchemeHeader struct {
	SchemeID string `json:"scheme_id"`

	SchemeName        *string `json:"scheme_name"`
	SchemeDescription *string `json:"scheme_description"`
	VendorName        *string `json:"vendor_name"`

	SchemeType    string `json:"scheme_type"`
	SchemeSubtype string `json:"scheme_subtype"`

	SchemePeriod  string  `json:"scheme_period"` // Duration | Event
	Duration      *string `json:"duration"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	PriceDropDate *string `json:"price_drop_date"`

	DiscountType         *string `json:"discount_type"`
	MaxCap               *string `json:"max_cap"`
	DiscountSlabType     *string `json:"discount_slab_type"`
	BrandSupportAbsolute *string `json:"brand_support_absolute"`
	GSTRate              *string `json:"gst_rate"`

	AdditionalConditions    *string `json:"additional_conditions"`
	FSNFileConfigFile       string  `json:"fsn_file_config_file"`
	MinimumOfActualOrAgreed string  `json:"minimum_of_actual_discount_or_agreed_claim"`
	RemoveGSTFromFinalClaim *string `json:"remove_gst_from_final_claim"`
	OverAndAbove            string  `json:"over_and_above"`
	SchemeDocument          string  `json:"scheme_document"`
	BestBet                 *string `json:"best_bet"`

	SourceFile      *string   `json:"source_file"`
	ExtractedAt     time.Time `json:"extracted_at"`
	Confidence      float64   `json:"confidence"`
	NeedsEscalation bool      `json:"needs_escalation"`
}

// ComputeID is md5(name|start|end), first ten hex chars.
func (h SchemeHeader) ComputeID() string {
	sum := md5.Sum([]byte(deref(h.SchemeName) + "|" + deref(h.StartDate) + "|" + deref(h.EndDate)))
	return hex.EncodeToString(sum[:])[:10]
}

// Response is what one extraction call produced.
type Response struct {
	Schemes   []SchemeHeader
	Raw       string
	Model     string
	RequestID string
	Usage     openrouter.Usage
	Cost      float64
	Dropped   int // schemes that failed validation
}

// AverageConfidence is 0 when there are no schemes.
func (r Response) AverageConfidence() float64 {
	if len(r.Schemes) == 0 {
		return 0
	}
	var sum float64
	for _, s := range r.Schemes {
		sum += s.Confidence
	}
	return sum / float64(len(r.Schemes))
}

// NeedsEscalation reports whether any scheme needs review.
func (r Response) NeedsEscalation() bool {
	for _, s := range r.Schemes {
		if s.NeedsEscalation {
			return true
		}
	}
	return false
}

// Chatter is the slice of openrouter.Client the extractor needs.
type Chatter interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error)
}

// SchemeExtractor is the interface the pipeline depends on.
type SchemeExtractor interface {
	Extract(ctx context.Context, subject, body string) (Response, error)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr(s string) *string { return &s }
