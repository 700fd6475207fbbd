package openrouter

import "sync"

// Price is USD per one million tokens.
type Price struct {
	InputPer1M  float64
	OutputPer1M float64
}

// DefaultPricing lists the models whose prices differ from the configured default.
func DefaultPricing() map[string]Price {
	return map[string]Price{
		"openai/gpt-4o-mini":          {InputPer1M: 0.15, OutputPer1M: 0.60},
		"anthropic/claude-3.5-sonnet": {InputPer1M: 3.00, OutputPer1M: 15.00},
		"google/gemini-1.5-flash":     {InputPer1M: 0.075, OutputPer1M: 0.30},
	}
}

// PriceFor returns the per-model price, or the configured default.
func (c *Client) PriceFor(model string) Price { return c.price(model) }

func (c *Client) price(model string) Price {
	if p, ok := c.cfg.Pricing[model]; ok {
		return p
	}
	return Price{InputPer1M: c.cfg.InputCostPer1M, OutputPer1M: c.cfg.OutputCostPer1M}
}

func (c *Client) cost(model string, u Usage) float64 {
	return c.price(model).Cost(u)
}

// Cost returns the USD cost of u.
func (p Price) Cost(u Usage) float64 {
	in, out := p.split(u)
	return in + out
}

func (p Price) split(u Usage) (float64, float64) {
	return float64(u.PromptTokens) / 1_000_000 * p.InputPer1M,
		float64(u.CompletionTokens) / 1_000_000 * p.OutputPer1M
}

type ModelUsage struct {
	Calls            int     `json:"calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
}

type UsageStats struct {
	Calls            int                   `json:"num_calls"`
	Failures         int                   `json:"failures"`
	PromptTokens     int                   `json:"prompt_tokens"`
	CompletionTokens int                   `json:"completion_tokens"`
	TotalTokens      int                   `json:"total_tokens"`
	Cost             float64               `json:"total_cost"`
	ByModel          map[string]ModelUsage `json:"by_model"`
}

// UsageTracker accumulates token usage across calls. Safe for concurrent use.
type UsageTracker struct {
	mu    sync.Mutex
	stats UsageStats
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{stats: UsageStats{ByModel: map[string]ModelUsage{}}}
}

func (t *UsageTracker) Add(model string, u Usage, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Calls++
	t.stats.PromptTokens += u.PromptTokens
	t.stats.CompletionTokens += u.CompletionTokens
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	t.stats.TotalTokens += total
	t.stats.Cost += cost

	m := t.stats.ByModel[model]
	m.Calls++
	m.PromptTokens += u.PromptTokens
	m.CompletionTokens += u.CompletionTokens
	m.Cost += cost
	t.stats.ByModel[model] = m
}

func (t *UsageTracker) AddFailure() {
	t.mu.Lock()
	t.stats.Failures++
	t.mu.Unlock()
}

// Stats returns a copy of the totals.
func (t *UsageTracker) Stats() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.stats
	out.ByModel = make(map[string]ModelUsage, len(t.stats.ByModel))
	for k, v := range t.stats.ByModel {
		out.ByModel[k] = v
	}
	return out
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(s string) int {
	return len(s) / 4
}
