package gridsearch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/entity"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

type chatFunc func(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error)

func (f chatFunc) Chat(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error) {
	return f(ctx, req)
}

type memCalls struct {
	mu    sync.Mutex
	calls []*entity.GridCall
}

func (m *memCalls) Insert(_ context.Context, c *entity.GridCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return nil
}

func newGrid(t *testing.T, mode Mode, fields ...string) Grid {
	dir := t.TempDir()
	return Grid{
		Models:       []string{"openai/gpt-4o-mini", "anthropic/claude-3.5-sonnet"},
		Temperatures: []float64{0},
		MaxTokens:    []int{256},
		TopPs:        []float64{1},
		Fields:       fields,
		Mode:         mode,
		OutputCSV:    filepath.Join(dir, "grid.csv"),
		ResultsDir:   filepath.Join(dir, "results"),
	}
}

func TestRunner_FieldModeLogsAndContinues(t *testing.T) {
	g := newGrid(t, ModeField, "scheme_name", "start_date")
	csvw, err := NewCSVWriter(g.OutputCSV)
	require.NoError(t, err)
	ledger := &memCalls{}

	client := chatFunc(func(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error) {
		prompt := req.Messages[0].Content
		if req.Model == "anthropic/claude-3.5-sonnet" && strings.Contains(prompt, "Field: start_date") {
			return openrouter.ChatResult{Raw: []byte(`{"error":"overloaded"}`)}, &openrouter.APIError{StatusCode: 503, Body: "overloaded"}
		}
		out := "Q1 Sellin Scheme"
		if strings.Contains(prompt, "Field: start_date") {
			out = "01/04/2024"
		}
		return openrouter.ChatResult{Content: out, Usage: openrouter.Usage{TotalTokens: 10}, Cost: 0.001}, nil
	})

	r := NewRunner(Config{Grid: g, Client: client, CSV: csvw, Calls: ledger}, nil)
	sum, err := r.Run(t.Context(), []Document{{Name: "mail1.txt", Content: "scheme mail"}})
	require.NoError(t, err)
	require.NoError(t, csvw.Close())

	assert.Equal(t, 4, sum.Requests)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 30, sum.TotalTokens)
	assert.Len(t, ledger.calls, 4)

	recs := readCSV(t, g.OutputCSV)
	require.Len(t, recs, 5)
	failed := recs[4]
	assert.Equal(t, "anthropic/claude-3.5-sonnet", failed[3])
	assert.Equal(t, "start_date", failed[2])
	assert.Equal(t, "false", failed[9])
	assert.Contains(t, failed[10], "HTTP error: 503")
	assert.Equal(t, `{"error":"overloaded"}`, failed[8])
	for _, rec := range recs[1:] {
		for i, col := range rec[:10] {
			assert.NotEmpty(t, col, "column %s", Columns[i])
		}
	}

	b, err := os.ReadFile(filepath.Join(g.ResultsDir, "openai_gpt_4o_mini.json"))
	require.NoError(t, err)
	var results []Result
	require.NoError(t, json.Unmarshal(b, &results))
	require.Len(t, results, 1)
	assert.Equal(t, constants.ResultSuccess, results[0].Status)
	assert.Equal(t, "Q1 Sellin Scheme", results[0].Fields["scheme_name"])
	assert.Equal(t, "2024-04-01", results[0].Fields["start_date"])

	b, err = os.ReadFile(filepath.Join(g.ResultsDir, "anthropic_claude_3.5_sonnet.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &results))
	assert.Equal(t, constants.ResultAPIError, results[0].Status)
	assert.Contains(t, results[0].Fields["start_date"], "ERROR: ")
}

func TestRunner_ConsolidatedMode(t *testing.T) {
	g := newGrid(t, ModeConsolidated, "scheme_name", "gst_rate", "remove_gst", "sub_type")
	csvw, err := NewCSVWriter(g.OutputCSV)
	require.NoError(t, err)
	defer csvw.Close()

	var sawJSONFormat bool
	client := chatFunc(func(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error) {
		if req.Model == "openai/gpt-4o-mini" {
			sawJSONFormat = req.ResponseFormat != nil
			return openrouter.ChatResult{Content: "```json\n{\"scheme_name\":\"Coupon Fest\",\"gst_rate\":\"18\",\"remove_gst\":\"yes\",\"sub_type\":\"coupon\"}\n```"}, nil
		}
		return openrouter.ChatResult{Content: "I could not produce JSON"}, nil
	})

	r := NewRunner(Config{Grid: g, Client: client, CSV: csvw}, nil)
	sum, err := r.Run(t.Context(), []Document{{Name: "d.txt", Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Requests)
	assert.Equal(t, 2, sum.Succeeded)
	assert.True(t, sawJSONFormat)
	assert.Len(t, sum.ResultFiles, 2)

	var results []Result
	b, err := os.ReadFile(filepath.Join(g.ResultsDir, "openai_gpt_4o_mini.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &results))
	f := results[0].Fields
	assert.Equal(t, "Coupon Fest", f["scheme_name"])
	assert.InDelta(t, 18.0, f["gst_rate"], 1e-9)
	assert.Equal(t, "Yes", f["remove_gst"])
	assert.Equal(t, "COUPON", f["sub_type"])

	b, err = os.ReadFile(filepath.Join(g.ResultsDir, "anthropic_claude_3.5_sonnet.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &results))
	assert.Equal(t, constants.ResultJSONError, results[0].Status)

	recs := readCSV(t, g.OutputCSV)
	assert.Equal(t, ConsolidatedField, recs[1][2])
}

func TestRunner_StopsOnCancel(t *testing.T) {
	g := newGrid(t, ModeField, "scheme_name")
	csvw, err := NewCSVWriter(g.OutputCSV)
	require.NoError(t, err)
	defer csvw.Close()

	ctx, cancel := context.WithCancel(t.Context())
	client := chatFunc(func(ctx context.Context, req openrouter.ChatRequest) (openrouter.ChatResult, error) {
		cancel()
		return openrouter.ChatResult{}, ctx.Err()
	})
	r := NewRunner(Config{Grid: g, Client: client, CSV: csvw}, nil)
	sum, err := r.Run(ctx, []Document{{Name: "a"}, {Name: "b"}})
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, sum.Requests)
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Hello   world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.TXT"), []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "c.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.pdf"), []byte("skip"), 0o644))

	docs, err := LoadDocuments(dir, 5, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Name)
	assert.Equal(t, "Hello", docs[0].Content)
	assert.Equal(t, "sub/b.TXT", docs[1].Name)
	assert.Equal(t, "01234", docs[1].Content)
}
