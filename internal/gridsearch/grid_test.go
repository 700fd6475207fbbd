package gridsearch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

func TestDefaultGrid(t *testing.T) {
	g, err := LoadGrid("")
	require.NoError(t, err)
	assert.Len(t, g.Models, 3)
	assert.Len(t, g.Fields, 21)
	assert.Equal(t, ModeField, g.Mode)
	assert.Len(t, g.Combinations(), 3)
	assert.Equal(t, 3*21*2, g.RequestCount(2))
}

func TestLoadGrid_OverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	yml := `
models: [openai/gpt-4o-mini, anthropic/claude-3.5-sonnet]
temperatures: [0.0, 0.7]
max_tokens: [500, 1000]
top_p: [0.9]
fields: [scheme_name, start_date]
mode: consolidated
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	g, err := LoadGrid(path)
	require.NoError(t, err)
	assert.Equal(t, ModeConsolidated, g.Mode)
	assert.Equal(t, []string{"scheme_name", "start_date"}, g.Fields)
	assert.Equal(t, "results/grid_results.csv", g.OutputCSV, "unset keys keep defaults")

	combos := g.Combinations()
	require.Len(t, combos, 2*2*2*1)
	assert.Equal(t, Params{Model: "openai/gpt-4o-mini", Temperature: 0, MaxTokens: 500, TopP: 0.9}, combos[0])
	assert.Equal(t, Params{Model: "openai/gpt-4o-mini", Temperature: 0, MaxTokens: 1000, TopP: 0.9}, combos[1])
	assert.Equal(t, "anthropic/claude-3.5-sonnet", combos[4].Model)
	assert.Equal(t, 2*8, g.RequestCount(2)) // one request per document and combination

	g.Mode = ModeField
	assert.Equal(t, 2*8*2, g.RequestCount(2))
	assert.Zero(t, g.RequestCount(0))
}

func TestLoadGrid_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperatures: [3.5]\ntop_p: [1.5]\nfields: [nope]\nmode: bulk\n"), 0o644))

	_, err := LoadGrid(path)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "temperatures")
	assert.Contains(t, err.Error(), "top_p")
	assert.Contains(t, err.Error(), "fields")
	assert.Contains(t, err.Error(), "mode")

	_, err = LoadGrid(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPrompts(t *testing.T) {
	f, ok := LookupField("gst_rate")
	require.True(t, ok)
	p := FieldPrompt(f, "DOC BODY")
	assert.Contains(t, p, "Field: gst_rate")
	assert.Contains(t, p, "DOC BODY")

	c := ConsolidatedPrompt([]string{"scheme_name", "remove_gst"}, "DOC BODY")
	assert.Contains(t, c, `- "scheme_name":`)
	assert.Contains(t, c, `- "remove_gst":`)
	assert.Contains(t, c, "Yes/No fields (remove_gst)")
	assert.NotContains(t, c, "gst_rate")
}

func TestPreprocess(t *testing.T) {
	in := "Hello   team,\n\nPlease see https://example.com/x and mail a.b@vendor.com!!!\nDisclaimer: do not share this."
	out := Preprocess(in)
	assert.Equal(t, "Hello team, Please see and mail !", out)
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestGrid_Estimate(t *testing.T) {
	g := Grid{
		Models:       []string{"a/one", "b/two"},
		Temperatures: []float64{0},
		MaxTokens:    []int{100},
		TopPs:        []float64{1},
		Fields:       []string{"scheme_name", "start_date"},
		Mode:         ModeConsolidated,
	}
	docs := []Document{
		{Name: "a.txt", Content: strings.Repeat("x", 400), RawChars: 800},
		{Name: "b.txt", Content: strings.Repeat("y", 400), RawChars: 800},
	}
	flat := func(string) openrouter.Price { return openrouter.Price{InputPer1M: 1, OutputPer1M: 2} }

	est := g.Estimate(docs, flat)
	assert.Equal(t, 2, est.Documents)
	assert.Equal(t, 2, est.Combinations)
	assert.Equal(t, 4, est.Requests)
	require.Len(t, est.PerDocument, 2)
	assert.Equal(t, DocEstimate{Name: "a.txt", RawTokens: 200, CleanTokens: 100}, est.PerDocument[0])
	assert.Equal(t, 400, est.RawTokens)
	assert.Equal(t, 200, est.CleanTokens)

	overhead := ApproxTokens(len(ConsolidatedPrompt(g.Fields, "")))
	assert.Equal(t, overhead, est.PromptOverhead)
	assert.Equal(t, 2*(200+2*overhead), est.InputTokens)
	assert.Equal(t, 100*4, est.MaxOutputTokens)
	assert.InDelta(t, (float64(est.InputTokens)*1+400*2)/1e6, est.MaxCost, 1e-12)

	g.Mode = ModeField
	est = g.Estimate(docs, nil)
	assert.Equal(t, 8, est.Requests)
	assert.Equal(t, 2*(200*2+2*est.PromptOverhead), est.InputTokens)
	assert.Equal(t, 100*8, est.MaxOutputTokens)
	assert.Zero(t, est.MaxCost)
}
