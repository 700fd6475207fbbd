package gridsearch

import "github.com/pranayab18/Data-Extraction/internal/openrouter"

// ApproxTokens is the chars/4 rule of thumb used for dry-run sizing.
func ApproxTokens(chars int) int { return chars / 4 }

// DocEstimate sizes one document before and after preprocessing.
type DocEstimate struct {
	Name        string `json:"name"`
	RawTokens   int    `json:"raw_tokens"`
	CleanTokens int    `json:"clean_tokens"`
}

// Estimate projects a grid run without calling the API. InputTokens counts
// every prompt the run would send; MaxOutputTokens is the ceiling given by
// max_tokens. Cost uses the input price on InputTokens and the output price
// on MaxOutputTokens, so it is an upper bound.
type Estimate struct {
	Documents       int           `json:"documents"`
	Combinations    int           `json:"combinations"`
	Requests        int           `json:"requests"`
	PerDocument     []DocEstimate `json:"per_document"`
	RawTokens       int           `json:"raw_tokens"`
	CleanTokens     int           `json:"clean_tokens"`
	PromptOverhead  int           `json:"prompt_overhead"` // template tokens per document, summed over its requests
	InputTokens     int           `json:"input_tokens"`
	MaxOutputTokens int           `json:"max_output_tokens"`
	MaxCost         float64       `json:"max_cost"`
}

// Estimate sizes a run of g over docs. price may be nil, in which case
// MaxCost stays zero.
func (g Grid) Estimate(docs []Document, price func(model string) openrouter.Price) Estimate {
	est := Estimate{
		Documents:    len(docs),
		Combinations: len(g.Combinations()),
		Requests:     g.RequestCount(len(docs)),
		PerDocument:  make([]DocEstimate, 0, len(docs)),
	}
	for _, d := range docs {
		de := DocEstimate{Name: d.Name, RawTokens: ApproxTokens(d.RawChars), CleanTokens: ApproxTokens(len(d.Content))}
		est.PerDocument = append(est.PerDocument, de)
		est.RawTokens += de.RawTokens
		est.CleanTokens += de.CleanTokens
	}

	perDoc := 1
	if g.Mode == ModeConsolidated {
		est.PromptOverhead = ApproxTokens(len(ConsolidatedPrompt(g.Fields, "")))
	} else {
		perDoc = len(g.Fields)
		for _, name := range g.Fields {
			f, ok := LookupField(name)
			if !ok {
				f = Field{Name: name}
			}
			est.PromptOverhead += ApproxTokens(len(FieldPrompt(f, "")))
		}
	}

	// Input for one combination: each document is sent once per request.
	inPerCombo := est.CleanTokens*perDoc + est.PromptOverhead*len(docs)
	requestsPerCombo := perDoc * len(docs)
	for _, p := range g.Combinations() {
		out := p.MaxTokens * requestsPerCombo
		est.InputTokens += inPerCombo
		est.MaxOutputTokens += out
		if price != nil {
			est.MaxCost += price(p.Model).Cost(openrouter.Usage{PromptTokens: inPerCombo, CompletionTokens: out})
		}
	}
	return est
}
