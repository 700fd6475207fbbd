package gridsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/entity"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

// Chatter is the part of openrouter.Client the harness needs.
type Chatter interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error)
}

// CallStore persists grid rows to the run ledger.
type CallStore interface {
	Insert(ctx context.Context, c *entity.GridCall) error
}

type Config struct {
	Grid   Grid
	Client Chatter
	CSV    *CSVWriter
	Calls  CallStore // optional
	RunID  uuid.UUID
}

// Result is the parsed outcome of one document under one parameter set.
type Result struct {
	Document         string                 `json:"document"`
	Parameters       Params                 `json:"parameters"`
	Status           constants.ResultStatus `json:"status"`
	Fields           map[string]any         `json:"fields"`
	ValidationErrors []string               `json:"validation_errors,omitempty"`
}

type Summary struct {
	Documents   int
	Requests    int
	Succeeded   int
	Failed      int
	TotalTokens int
	Cost        float64
	Elapsed     time.Duration
	ResultFiles []string
}

// Runner walks the grid sequentially. Failed calls are written to the CSV
// with their error and the run moves on; only local I/O failures stop it.
type Runner struct {
	grid   Grid
	client Chatter
	csv    *CSVWriter
	calls  CallStore
	runID  uuid.UUID
	logger *slog.Logger
	now    func() time.Time
}

type callOutcome struct {
	Content string
	Err     error
}

func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunID == uuid.Nil {
		cfg.RunID = uuid.New()
	}
	if len(cfg.Grid.Fields) == 0 {
		cfg.Grid.Fields = FieldNames()
	}
	if cfg.Grid.Mode == "" {
		cfg.Grid.Mode = ModeField
	}
	return &Runner{
		grid:   cfg.Grid,
		client: cfg.Client,
		csv:    cfg.CSV,
		calls:  cfg.Calls,
		runID:  cfg.RunID,
		logger: logger,
		now:    time.Now,
	}
}

func (r *Runner) Run(ctx context.Context, docs []Document) (Summary, error) {
	start := time.Now()
	combos := r.grid.Combinations()
	sum := Summary{Documents: len(docs)}
	byModel := make(map[string][]Result, len(r.grid.Models))
	ctx = common.WithRunID(ctx, r.runID.String())

	r.logger.Info("grid.run.start",
		"run_id", r.runID,
		"documents", len(docs),
		"combinations", len(combos),
		"mode", r.grid.Mode,
		"requests", r.grid.RequestCount(len(docs)),
	)

	for i, doc := range docs {
		for _, p := range combos {
			if err := ctx.Err(); err != nil {
				sum.Elapsed = time.Since(start)
				return sum, err
			}
			var (
				res Result
				err error
			)
			if r.grid.Mode == ModeConsolidated {
				res, err = r.consolidated(ctx, doc, p, &sum)
			} else {
				res, err = r.perField(ctx, doc, p, &sum)
			}
			if err != nil {
				sum.Elapsed = time.Since(start)
				return sum, err
			}
			byModel[p.Model] = append(byModel[p.Model], res)
		}

		// results are rewritten after every document so an interrupted run keeps its progress
		for _, m := range r.grid.Models {
			path, err := r.saveResults(m, byModel[m])
			if err != nil {
				r.logger.Warn("grid.results.save_failed", "model", m, "error", err)
				continue
			}
			if i == len(docs)-1 && path != "" {
				sum.ResultFiles = append(sum.ResultFiles, path)
			}
		}
		r.logger.Info("grid.document.done", "document", doc.Name, "index", i+1, "total", len(docs))
	}

	sum.Elapsed = time.Since(start)
	r.logger.Info("grid.run.done",
		"run_id", r.runID,
		"requests", sum.Requests,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"total_tokens", sum.TotalTokens,
		"cost", sum.Cost,
		"elapsed_ms", sum.Elapsed.Milliseconds(),
	)
	return sum, nil
}

func (r *Runner) perField(ctx context.Context, doc Document, p Params, sum *Summary) (Result, error) {
	res := Result{Document: doc.Name, Parameters: p, Status: constants.ResultSuccess}
	extracted := make(map[string]any, len(r.grid.Fields))
	failed := map[string]string{}

	for _, name := range r.grid.Fields {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		f, ok := LookupField(name)
		if !ok {
			f = Field{Name: name, Description: "Extract " + name}
		}
		out, err := r.call(ctx, doc, p, name, FieldPrompt(f, doc.Content), false, sum)
		if err != nil {
			return res, err
		}
		if out.Err != nil {
			failed[name] = "ERROR: " + out.Err.Error()
			res.Status = constants.ResultAPIError
			continue
		}
		if v, ok := CleanValue(out.Content, name); ok {
			extracted[name] = v
		} else {
			extracted[name] = nil
		}
	}

	res.Fields, res.ValidationErrors = ValidateFields(extracted)
	for k, v := range failed {
		res.Fields[k] = v
	}
	return res, nil
}

func (r *Runner) consolidated(ctx context.Context, doc Document, p Params, sum *Summary) (Result, error) {
	res := Result{Document: doc.Name, Parameters: p, Fields: map[string]any{}}
	prompt := ConsolidatedPrompt(r.grid.Fields, doc.Content)
	// only OpenAI models are known to honour response_format
	out, err := r.call(ctx, doc, p, ConsolidatedField, prompt, strings.Contains(p.Model, "gpt"), sum)
	if err != nil {
		return res, err
	}
	if out.Err != nil {
		res.Status = constants.ResultAPIError
		for _, f := range r.grid.Fields {
			res.Fields[f] = "ERROR: " + out.Err.Error()
		}
		return res, nil
	}

	data := map[string]any{}
	res.Status = constants.ResultSuccess
	if err := json.Unmarshal([]byte(openrouter.StripCodeFences(out.Content)), &data); err != nil {
		res.Status = constants.ResultJSONError
		res.ValidationErrors = append(res.ValidationErrors, fmt.Sprintf("invalid JSON: %v", err))
		r.logger.Warn("grid.call.invalid_json", "document", doc.Name, "model", p.Model, "error", err)
	}

	validated, verrs := ValidateFields(data)
	res.ValidationErrors = append(res.ValidationErrors, verrs...)
	for _, f := range r.grid.Fields {
		v := validated[f]
		if s, ok := v.(string); ok {
			if cleaned, ok := CleanValue(s, f); ok {
				v = cleaned
			} else {
				v = nil
			}
		}
		res.Fields[f] = v
	}
	return res, nil
}

// call sends one request and logs it. The returned error is set only when
// the CSV row could not be written.
func (r *Runner) call(ctx context.Context, doc Document, p Params, field, prompt string, jsonMode bool, sum *Summary) (callOutcome, error) {
	req := openrouter.UserPrompt(p.Model, prompt)
	req.Temperature = openrouter.Float(p.Temperature)
	req.MaxTokens = openrouter.Int(p.MaxTokens)
	req.TopP = openrouter.Float(p.TopP)
	if jsonMode {
		req.ResponseFormat = openrouter.JSONObject
	}

	reqID := uuid.New().String()
	ctx = common.WithRequestID(common.WithDocument(ctx, doc.Name), reqID)
	res, callErr := r.client.Chat(ctx, req)

	row := Row{
		Timestamp:   r.now(),
		Document:    doc.Name,
		Field:       field,
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		TopP:        p.TopP,
		Prompt:      prompt,
		RawOutput:   res.Content,
		Success:     callErr == nil,
	}
	sum.Requests++
	sum.TotalTokens += res.Usage.TotalTokens
	sum.Cost += res.Cost
	if callErr != nil {
		sum.Failed++
		row.Error = callErr.Error()
		if row.RawOutput == "" {
			row.RawOutput = string(res.Raw)
		}
		r.logger.Warn("grid.call.failed",
			"req_id", reqID,
			"document", doc.Name,
			"field", field,
			"model", p.Model,
			"error", callErr,
		)
	} else {
		sum.Succeeded++
	}

	if err := r.csv.Write(row); err != nil {
		return callOutcome{}, common.WrapError(err, "grid csv")
	}
	r.record(ctx, reqID, row, res)
	return callOutcome{Content: res.Content, Err: callErr}, nil
}

func (r *Runner) record(ctx context.Context, reqID string, row Row, res openrouter.ChatResult) {
	if r.calls == nil {
		return
	}
	c := &entity.GridCall{
		ID:               uuid.New(),
		RunID:            r.runID,
		RequestID:        reqID,
		Document:         row.Document,
		Field:            row.Field,
		Model:            row.Model,
		Temperature:      row.Temperature,
		MaxTokens:        row.MaxTokens,
		TopP:             row.TopP,
		Success:          row.Success,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		Cost:             res.Cost,
		LatencyMs:        res.Latency.Milliseconds(),
		CreatedAt:        row.Timestamp,
	}
	if row.Error != "" {
		msg := row.Error
		c.ErrorMessage = &msg
	}
	if err := r.calls.Insert(ctx, c); err != nil {
		r.logger.Warn("grid.ledger.insert_failed", "req_id", reqID, "error", err)
	}
}

func (r *Runner) saveResults(model string, results []Result) (string, error) {
	if r.grid.ResultsDir == "" || results == nil {
		return "", nil
	}
	if err := os.MkdirAll(r.grid.ResultsDir, 0o755); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.grid.ResultsDir, SafeModelName(model)+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// SafeModelName turns a model id into a file name.
func SafeModelName(model string) string {
	return strings.NewReplacer("/", "_", "-", "_", ":", "_").Replace(model)
}
