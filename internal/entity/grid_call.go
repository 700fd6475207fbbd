package entity

import (
	"time"

	"github.com/google/uuid"
)

// GridCall mirrors one grid CSV row plus token accounting.
type GridCall struct {
	ID               uuid.UUID `json:"id"`
	RunID            uuid.UUID `json:"run_id"`
	RequestID        string    `json:"req_id"`
	Document         string    `json:"document"`
	Field            string    `json:"field"`
	Model            string    `json:"model"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	Success          bool      `json:"success"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}
