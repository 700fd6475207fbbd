package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"
)

// KeyInfo is the data block of GET /auth/key.
type KeyInfo struct {
	Label          string   `json:"label"`
	Usage          float64  `json:"usage"`
	Limit          *float64 `json:"limit"`
	LimitRemaining *float64 `json:"limit_remaining"`
	IsFreeTier     bool     `json:"is_free_tier"`
}

// Remaining returns the credit left, or -1 when the key is unlimited.
func (k KeyInfo) Remaining() float64 {
	if k.LimitRemaining != nil {
		return *k.LimitRemaining
	}
	if k.Limit == nil {
		return -1
	}
	return *k.Limit - k.Usage
}

// KeyInfo reports credit usage and limits of the configured key.
func (c *Client) KeyInfo(ctx context.Context) (KeyInfo, error) {
	if c.cfg.APIKey == "" {
		return KeyInfo{}, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return KeyInfo{}, fmt.Errorf("rate limiter: %w", err)
	}
	raw, _, err := c.send(ctx, uuid.New().String(), http.MethodGet, "auth/key", nil)
	if err != nil {
		return KeyInfo{}, err
	}
	var out struct {
		Data KeyInfo `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return KeyInfo{}, fmt.Errorf("decode key info: %w", err)
	}
	return out.Data, nil
}

type ModelPricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

type Model struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ContextLength int          `json:"context_length"`
	Pricing       ModelPricing `json:"pricing"`
}

// ListModels returns the models available to the key, sorted by id.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	raw, _, err := c.send(ctx, uuid.New().String(), http.MethodGet, "models", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].ID < out.Data[j].ID })
	return out.Data, nil
}
