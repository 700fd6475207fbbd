package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is one invocation of the grid harness or the extraction pipeline.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	Kind         string     `json:"kind"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Requests     int        `json:"requests"`
	Failures     int        `json:"failures"`
	TotalTokens  int        `json:"total_tokens"`
	TotalCost    float64    `json:"total_cost"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}
