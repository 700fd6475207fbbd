package openrouter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const previewLen = 200

// CallRecord is the detailed per-call log written by CallLogger.
type CallRecord struct {
	CallID           string   `json:"call_id"`
	RequestID        string   `json:"req_id"`
	Timestamp        string   `json:"timestamp"`
	Model            string   `json:"model_name"`
	Temperature      *float64 `json:"temperature"`
	MaxTokens        *int     `json:"max_tokens"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	InputTokens      int      `json:"input_tokens"`
	OutputTokens     int      `json:"output_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	InputCost        float64  `json:"input_cost"`
	OutputCost       float64  `json:"output_cost"`
	TotalCost        float64  `json:"total_cost"`
	LatencySeconds   float64  `json:"latency_seconds"`
	Attempts         int      `json:"attempts"`
	InputPreview     string   `json:"input_preview"`
	OutputPreview    string   `json:"output_preview"`
	Success          bool     `json:"success"`
	ErrorMessage     string   `json:"error_message,omitempty"`
}

func newCallRecord(req ChatRequest, reqID string, res ChatResult, price Price, callErr error) CallRecord {
	var prompt string
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}
	in, out := price.split(res.Usage)
	rec := CallRecord{
		RequestID:        reqID,
		Timestamp:        time.Now().UTC().Format(time.RFC3339Nano),
		Model:            req.Model,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		InputTokens:      res.Usage.PromptTokens,
		OutputTokens:     res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
		InputCost:        in,
		OutputCost:       out,
		TotalCost:        in + out,
		LatencySeconds:   res.Latency.Seconds(),
		Attempts:         res.Attempts,
		InputPreview:     preview(prompt),
		OutputPreview:    preview(res.Content),
		Success:          callErr == nil,
	}
	if callErr != nil {
		rec.ErrorMessage = callErr.Error()
	}
	return rec
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}

// CallLogger writes one JSON document per LLM call into a directory.
type CallLogger struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
	n  int
}

func NewCallLogger(dir string, logger *slog.Logger) *CallLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallLogger{dir: dir, logger: logger}
}

// Log assigns a call id and writes rec to <dir>/<call_id>.json.
func (l *CallLogger) Log(rec CallRecord) error {
	l.mu.Lock()
	l.n++
	n := l.n
	l.mu.Unlock()

	rec.CallID = fmt.Sprintf("llm_call_%04d_%s", n, time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create call log dir: %w", err)
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode call record: %w", err)
	}
	path := filepath.Join(l.dir, rec.CallID+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write call record: %w", err)
	}
	l.logger.Debug("openrouter.calllog.written", "call_id", rec.CallID, "path", path)
	return nil
}
