package ingest

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/common"
)

func fixedNow(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

func touch(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, constants.PDF, Classify("a/B.PDF"))
	assert.Equal(t, constants.EXCEL, Classify("x.xlsm"))
	assert.Equal(t, constants.ZIP, Classify("x.zip"))
	assert.Equal(t, "", Classify("notes.txt"))
	assert.Equal(t, "", Classify("README"))
}

func TestScanInputs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"), "%PDF")
	touch(t, filepath.Join(root, "a", "c.xlsx"), "x")
	touch(t, filepath.Join(root, "a", "d.zip"), "x")
	touch(t, filepath.Join(root, "notes.txt"), "x")
	touch(t, filepath.Join(root, ".hidden", "e.pdf"), "x")
	touch(t, filepath.Join(root, ".f.pdf"), "x")

	got, stats, err := ScanInputs(t.Context(), root, true)
	require.NoError(t, err)

	var paths []string
	for _, in := range got {
		rel, _ := filepath.Rel(root, in.Path)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a/c.xlsx", "a/d.zip", "b.pdf"}, paths)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, int64(4), got[2].Size)

	all, _, err := ScanInputs(t.Context(), root, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, _, err = ScanInputs(t.Context(), " ", true)
	require.Error(t, err)
}

func TestExtractZip(t *testing.T) {
	fixedNow(t)
	dir := t.TempDir()
	zp := filepath.Join(dir, "mail pack.zip")
	writeZip(t, zp, map[string]string{"one.pdf": "1", "sub/two.pdf": "2"})

	res, err := ExtractZip(zp, filepath.Join(dir, "work"), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "work", "mail pack_extracted_20240301_093000"), res.Dir)
	assert.Len(t, res.Files, 2)
	b, err := os.ReadFile(filepath.Join(res.Dir, "sub", "two.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(b))
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	zp := filepath.Join(dir, "evil.zip")
	writeZip(t, zp, map[string]string{"../../escape.pdf": "x"})

	_, err := ExtractZip(zp, filepath.Join(dir, "work"), nil)
	require.Error(t, err)
	assert.Equal(t, "ZIP_TRAVERSAL", common.ErrorCode(err))
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)
	assert.NoFileExists(t, filepath.Join(dir, "escape.pdf"))
}

func TestExtractZip_NotAZip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.zip")
	touch(t, p, "not a zip")
	_, err := ExtractZip(p, dir, nil)
	assert.Equal(t, "ZIP_OPEN", common.ErrorCode(err))
}

func TestExcelToCSV(t *testing.T) {
	fixedNow(t)
	dir := t.TempDir()
	xp := filepath.Join(dir, "Scheme Sheet.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Model", "Discount"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"X1", "5%"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"X2"}))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(xp))
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "out")
	sum, err := ExcelToCSV(xp, out, nil)
	require.NoError(t, err)

	runDir := filepath.Join(out, "Scheme Sheet", "20240301_093000")
	assert.Equal(t, runDir, sum.RunDir)
	require.Equal(t, []string{filepath.Join(runDir, "Scheme Sheet_Sheet1.csv")}, sum.ExtractedFiles)

	cf, err := os.Open(sum.ExtractedFiles[0])
	require.NoError(t, err)
	defer cf.Close()
	rows, err := csv.NewReader(cf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Model", "Discount"}, {"X1", "5%"}, {"X2", ""}}, rows)

	raw, err := os.ReadFile(filepath.Join(runDir, "Scheme Sheet_summary.json"))
	require.NoError(t, err)
	var got ExcelSummary
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, xp, got.OriginalFile)
	assert.Equal(t, "20240301_093000", got.Timestamp)
}

func TestExcelToCSV_LegacyXLS(t *testing.T) {
	_, err := ExcelToCSV("old.xls", t.TempDir(), nil)
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)
}

func TestExpander_Expand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "input")
	touch(t, filepath.Join(in, "a.pdf"), "%PDF")
	writeZip(t, filepath.Join(in, "pack.zip"), map[string]string{"inner/b.pdf": "%PDF", "c.txt": "x"})
	touch(t, filepath.Join(in, "broken.xlsx"), "nope")

	e := NewExpander(filepath.Join(dir, "work"), filepath.Join(dir, "out"), nil)
	got, err := e.Expand(t.Context(), []string{in, filepath.Join(dir, "missing.pdf"), filepath.Join(dir, "x.doc")})
	require.NoError(t, err)

	require.Len(t, got.PDFs, 2)
	assert.Equal(t, filepath.Join(in, "a.pdf"), got.PDFs[0])
	assert.Equal(t, "b.pdf", filepath.Base(got.PDFs[1]))
	assert.Len(t, got.Zips, 1)
	assert.Empty(t, got.Excel)
	assert.Len(t, got.Warnings, 3) // broken.xlsx, missing.pdf, x.doc
}

func TestExpander_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewExpander(t.TempDir(), t.TempDir(), nil).Expand(ctx, []string{"a.pdf"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"), "x")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "existing.pdf"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial event")
	}

	touch(t, filepath.Join(root, "ignored.txt"), "x")
	touch(t, filepath.Join(root, "new.pdf"), "x")
	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "new.pdf"), p)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for new pdf")
	}

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(t.Context(), WatchConfig{})
	require.Error(t, err)
}
