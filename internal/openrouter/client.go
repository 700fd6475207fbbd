package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

const maxRetryAfter = time.Minute

// Chat sends a chat completion. Every attempt waits on the client's
// requests-per-minute limiter; transport failures and 429/5xx answers are
// retried with exponential backoff until MaxRetries attempts were made.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResult, error) {
	if c.cfg.APIKey == "" {
		return ChatResult{}, ErrNoAPIKey
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	c.logger.Info("openrouter.chat.start", append([]any{
		"req_id", reqID,
		"model", req.Model,
		"temperature", floatOrNil(req.Temperature),
		"max_tokens", intOrNil(req.MaxTokens),
		"top_p", floatOrNil(req.TopP),
		"messages", len(req.Messages),
	}, common.LogAttrs(ctx)...)...)

	var (
		lastErr  error
		lastRaw  []byte
		attempts int
	)
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		attempts = attempt
		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = fmt.Errorf("rate limiter: %w", err)
			break
		}

		raw, hdr, err := c.send(ctx, reqID, http.MethodPost, "chat/completions", req)
		lastRaw = raw
		var decoded chatResponse
		if err == nil {
			decoded, err = decodeChat(raw)
		}
		if err == nil {
			res := c.finish(req, reqID, raw, decoded, attempt, time.Since(start))
			c.logger.Info("openrouter.chat.ok",
				"req_id", reqID,
				"model", res.Model,
				"attempts", attempt,
				"prompt_tokens", res.Usage.PromptTokens,
				"completion_tokens", res.Usage.CompletionTokens,
				"cost", res.Cost,
				"elapsed_ms", res.Latency.Milliseconds(),
			)
			return res, nil
		}

		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
		if attempt == c.cfg.MaxRetries {
			lastErr = fmt.Errorf("max retries (%d) exceeded: %w", c.cfg.MaxRetries, err)
			break
		}

		wait := c.backoff(attempt, hdr)
		c.logger.Warn("openrouter.chat.retry",
			"req_id", reqID,
			"attempt", attempt,
			"max_attempts", c.cfg.MaxRetries,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-c.sleep(wait):
		}
		if ctx.Err() != nil {
			break
		}
	}

	latency := time.Since(start)
	c.usage.AddFailure()
	c.logCall(req, reqID, ChatResult{Latency: latency, Attempts: attempts}, lastErr)
	c.logger.Error("openrouter.chat.failed",
		"req_id", reqID,
		"model", req.Model,
		"attempts", attempts,
		"error", lastErr,
		"elapsed_ms", latency.Milliseconds(),
	)
	return ChatResult{
		RequestID: reqID,
		Raw:       lastRaw,
		Model:     req.Model,
		Attempts:  attempts,
		Latency:   latency,
	}, lastErr
}

func decodeChat(raw []byte) (chatResponse, error) {
	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return cc, fmt.Errorf("decode openrouter response: %w", err)
	}
	if cc.Error != nil {
		return cc, &APIError{StatusCode: errorCode(cc.Error.Code), Body: cc.Error.Message}
	}
	if len(cc.Choices) == 0 {
		return cc, ErrNoChoices
	}
	return cc, nil
}

func (c *Client) finish(req ChatRequest, reqID string, raw []byte, cc chatResponse, attempts int, latency time.Duration) ChatResult {
	model := cc.Model
	if model == "" {
		model = req.Model
	}
	cost := c.cost(req.Model, cc.Usage)
	res := ChatResult{
		RequestID:    reqID,
		Content:      cc.Choices[0].Message.Content,
		Raw:          raw,
		Model:        model,
		FinishReason: cc.Choices[0].FinishReason,
		Usage:        cc.Usage,
		Cost:         cost,
		Attempts:     attempts,
		Latency:      latency,
	}
	c.usage.Add(req.Model, cc.Usage, cost)
	c.logCall(req, reqID, res, nil)
	return res
}

// backoff returns RetryDelay * 2^(attempt-1), stretched to a Retry-After
// header when the server asks for longer.
func (c *Client) backoff(attempt int, hdr http.Header) time.Duration {
	wait := c.cfg.RetryDelay << uint(attempt-1)
	if hdr != nil {
		if secs, err := strconv.Atoi(hdr.Get("Retry-After")); err == nil && secs > 0 {
			ra := time.Duration(secs) * time.Second
			if ra > maxRetryAfter {
				ra = maxRetryAfter
			}
			if ra > wait {
				wait = ra
			}
		}
	}
	return wait
}

func (c *Client) logCall(req ChatRequest, reqID string, res ChatResult, callErr error) {
	if c.calls == nil {
		return
	}
	if err := c.calls.Log(newCallRecord(req, reqID, res, c.price(req.Model), callErr)); err != nil {
		c.logger.Warn("openrouter.calllog.write_failed", "req_id", reqID, "error", err)
	}
}

func errorCode(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return 0
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
