package gridsearch

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCSVWriter_AppendsRowsWithHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "grid.csv")
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{
		Timestamp: ts, Document: "a.txt", Field: "scheme_name", Model: "m/1",
		Temperature: 0.2, MaxTokens: 100, TopP: 1, Prompt: "p, with comma",
		RawOutput: "line1\nline2", Success: true,
	}))
	require.NoError(t, w.Close())

	// reopening appends without a second header
	w, err = NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{
		Timestamp: ts, Document: "a.txt", Field: "start_date", Model: "m/1",
		MaxTokens: 100, TopP: 1, Prompt: "p", RawOutput: `{"error":"x"}`,
		Success: false, Error: "HTTP error: 400 - bad",
	}))
	require.NoError(t, w.Close())

	recs := readCSV(t, path)
	require.Len(t, recs, 3)
	assert.Equal(t, Columns, recs[0])
	assert.Equal(t, []string{
		"2024-05-01 10:30:00", "a.txt", "scheme_name", "m/1", "0.2", "100", "1",
		"p, with comma", "line1\nline2", "true", "",
	}, recs[1])
	assert.Equal(t, "false", recs[2][9])
	assert.Equal(t, "HTTP error: 400 - bad", recs[2][10])
	for _, rec := range recs {
		assert.Len(t, rec, len(Columns))
	}
}
