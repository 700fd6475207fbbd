package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

// Config for the scheme extractor.
type Config struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	TopP            *float64
	JSONMode        bool // ask for response_format json_object
	LenientOptional bool // repair optional fields that fail the schema
}

type Extractor struct {
	cfg    Config
	client Chatter
	schema *jsonschema.Schema
	logger *slog.Logger
	now    func() time.Time
}

func NewExtractor(cfg Config, client Chatter, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	schema, err := CompileSchema(BuildSchemeJSONSchema())
	if err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg, client: client, schema: schema, logger: logger, now: time.Now}, nil
}

// Extract asks the model for the schemes in one mail. A transport failure
// or unparseable output is an error; individual schemes that fail
// validation are dropped and counted.
func (e *Extractor) Extract(ctx context.Context, subject, body string) (Response, error) {
	start := time.Now()

	req := openrouter.ChatRequest{
		Model: e.cfg.Model,
		Messages: []openrouter.Message{
			{Role: "system", Content: BuildSystemPrompt()},
			{Role: "user", Content: BuildUserPrompt(subject, body)},
		},
		Temperature: openrouter.Float(e.cfg.Temperature),
		MaxTokens:   openrouter.Int(e.cfg.MaxTokens),
		TopP:        e.cfg.TopP,
	}
	if e.cfg.JSONMode {
		req.ResponseFormat = openrouter.JSONObject
	}

	e.logger.Info("llm.extract.start",
		"model", e.cfg.Model,
		"subject", truncate(subject, 80),
		"body_chars", len(body),
	)

	res, err := e.client.Chat(ctx, req)
	if err != nil {
		e.logger.Error("llm.extract.http_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Response{Model: e.cfg.Model, Raw: res.Content}, err
	}
	out := Response{
		Raw:       res.Content,
		Model:     res.Model,
		RequestID: res.RequestID,
		Usage:     res.Usage,
		Cost:      res.Cost,
	}

	raws, err := ParseSchemes(res.Content)
	if err != nil {
		e.logger.Error("llm.extract.parse_failed",
			"req_id", res.RequestID, "error", err, "content", truncate(res.Content, 500),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, common.NewAppError("LLM_PARSE", "model output is not scheme json", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}

	extractedAt := e.now()
	for i, raw := range raws {
		h, err := e.decodeScheme(raw, res.RequestID)
		if err != nil {
			out.Dropped++
			e.logger.Warn("llm.extract.scheme_dropped", "req_id", res.RequestID, "index", i, "error", err)
			continue
		}
		h.ExtractedAt = extractedAt
		NormalizeScheme(&h)
		out.Schemes = append(out.Schemes, h)
	}

	e.logger.Info("llm.extract.ok",
		"req_id", res.RequestID,
		"schemes", len(out.Schemes),
		"dropped", out.Dropped,
		"avg_confidence", out.AverageConfidence(),
		"needs_escalation", out.NeedsEscalation(),
		"tokens", res.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (e *Extractor) decodeScheme(raw map[string]any, reqID string) (SchemeHeader, error) {
	m, _ := NormalizeAndSanitizeJSON(raw, e.logger)
	doc, err := json.Marshal(m)
	if err != nil {
		return SchemeHeader{}, err
	}

	// Validate strictly first.
	if err := ValidateScheme(e.schema, doc); err != nil {
		if !e.cfg.LenientOptional {
			return SchemeHeader{}, fmt.Errorf("schema validation failed: %w", err)
		}
		fixed, changed := SanitizeOptionalFields(m)
		cleaned, mErr := json.Marshal(fixed)
		if mErr != nil {
			return SchemeHeader{}, mErr
		}
		if vErr := ValidateScheme(e.schema, cleaned); vErr != nil {
			return SchemeHeader{}, fmt.Errorf("schema validation failed: %w", vErr)
		}
		e.logger.Warn("llm.extract.lenient_sanitize_applied", "req_id", reqID, "changed", changed)
		doc = cleaned
	}

	var h SchemeHeader
	if err := json.Unmarshal(doc, &h); err != nil {
		return SchemeHeader{}, fmt.Errorf("unmarshal scheme: %w", err)
	}
	return h, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
