package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// send issues one HTTP request against the API root and returns the raw body.
// A non-2xx status returns the body together with an *APIError.
func (c *Client) send(ctx context.Context, reqID, method, path string, body any) ([]byte, http.Header, error) {
	start := time.Now()
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")

	var rdr io.Reader
	var size int
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("openrouter.http.encode_error", "req_id", reqID, "error", err)
			return nil, nil, fmt.Errorf("encode json: %w", err)
		}
		rdr = bytes.NewReader(bs)
		size = len(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		c.logger.Error("openrouter.http.build_request_error", "req_id", reqID, "error", err)
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("HTTP-Referer", c.cfg.AppURL)
	req.Header.Set("X-Title", c.cfg.AppName)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("openrouter.http.request",
		"req_id", reqID,
		"method", method,
		"url", url,
		"content_length", size,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("openrouter.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Warn("openrouter.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("openrouter.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.Header, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, resp.Header, nil
}
