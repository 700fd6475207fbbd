package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/gridsearch"
)

func TestLoadGrid_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [a/b]\ndocuments_dir: docs\n"), 0o644))

	g, err := loadGrid(options{gridFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, g.Models)
	assert.Equal(t, "docs", g.DocumentsDir)

	g, err = loadGrid(options{
		gridFile: path,
		docsDir:  "other",
		csvPath:  "out.csv",
		models:   []string{"x/y", "z/w"},
		mode:     "Consolidated",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x/y", "z/w"}, g.Models)
	assert.Equal(t, "other", g.DocumentsDir)
	assert.Equal(t, "out.csv", g.OutputCSV)
	assert.Equal(t, gridsearch.ModeConsolidated, g.Mode)
}

func TestLoadGrid_RejectsBadMode(t *testing.T) {
	_, err := loadGrid(options{mode: "batch"})
	require.Error(t, err)
}

func TestLoadConfig_Validates(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.env")

	t.Setenv("RATE_LIMIT_RPM", "0")
	_, err := loadConfig(missing)
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPM")

	t.Setenv("RATE_LIMIT_RPM", "30")
	cfg, err := loadConfig(missing)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.LLM.RequestsPerMin)
}

func TestRun_DryRunPrintsEstimate(t *testing.T) {
	dir := t.TempDir()
	body := "Subject: Q2 JBP\n\nPlease   process the claim for   vendor Ganesh.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.txt"), []byte(body), 0o644))

	var out bytes.Buffer
	o := options{docsDir: dir, models: []string{"openai/gpt-4o-mini"}, mode: "consolidated", dryRun: true}
	require.NoError(t, run(t.Context(), &out, &common.Config{}, o, slog.Default()))

	got := out.String()
	assert.Contains(t, got, "mail.txt")
	assert.Contains(t, got, "1 documents x 1 combinations = 1 requests")
	assert.Contains(t, got, "prompt overhead:")
	assert.Contains(t, got, "max cost:")
}

func TestPrintEstimate(t *testing.T) {
	var out bytes.Buffer
	est := gridsearch.Estimate{
		Documents:       1,
		Combinations:    2,
		Requests:        2,
		PerDocument:     []gridsearch.DocEstimate{{Name: "a.txt", RawTokens: 120, CleanTokens: 90}},
		RawTokens:       120,
		CleanTokens:     90,
		PromptOverhead:  150,
		InputTokens:     480,
		MaxOutputTokens: 4000,
		MaxCost:         0.0123,
	}
	require.NoError(t, printEstimate(&out, est))

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, []string{"a.txt", "120", "90", "30"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"TOTAL", "120", "90", "30"}, strings.Fields(lines[2]))
	assert.Contains(t, out.String(), "1 documents x 2 combinations = 2 requests")
	assert.Contains(t, out.String(), "output tokens:   <= 4000")
	assert.Contains(t, out.String(), "max cost:        $0.0123")
}
