package ingest

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/common"
)

// ExcelSummary is written next to the sheet CSVs as <base>_summary.json.
type ExcelSummary struct {
	OriginalFile   string   `json:"original_file"`
	RunDir         string   `json:"run_dir"`
	Timestamp      string   `json:"timestamp"`
	ExtractedFiles []string `json:"extracted_files"`
	SkippedSheets  []string `json:"skipped_sheets,omitempty"`
}

// ExcelToCSV writes every non-empty sheet of an xlsx/xlsm workbook to
// outDir/<base>/<timestamp>/<base>_<sheet>.csv. A sheet that fails to read
// is logged and skipped.
func ExcelToCSV(path, outDir string, logger *slog.Logger) (ExcelSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if constants.NormalizeExt(filepath.Ext(path)) == "xls" {
		return ExcelSummary{}, common.NewAppError("EXCEL_FORMAT", "legacy .xls workbooks are not supported; save as .xlsx", common.ErrUnsupportedInput)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return ExcelSummary{}, common.NewAppError("EXCEL_OPEN", "cannot open workbook", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("ingest.excel.close_failed", "path", path, "error", err)
		}
	}()

	base := SafeFilename(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	ts := now().Format(TimestampLayout)
	runDir := filepath.Join(outDir, base, ts)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return ExcelSummary{}, common.WrapError(err, "create excel run dir")
	}

	sum := ExcelSummary{OriginalFile: path, RunDir: runDir, Timestamp: ts, ExtractedFiles: []string{}}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Error("ingest.excel.sheet_failed", "path", path, "sheet", sheet, "error", err)
			sum.SkippedSheets = append(sum.SkippedSheets, sheet)
			continue
		}
		rows = trimEmptyRows(rows)
		if len(rows) == 0 {
			continue
		}
		out := filepath.Join(runDir, base+"_"+SafeFilename(sheet)+".csv")
		if err := writeCSV(out, rows); err != nil {
			logger.Error("ingest.excel.write_failed", "path", out, "error", err)
			sum.SkippedSheets = append(sum.SkippedSheets, sheet)
			continue
		}
		sum.ExtractedFiles = append(sum.ExtractedFiles, out)
	}

	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return sum, err
	}
	if err := os.WriteFile(filepath.Join(runDir, base+"_summary.json"), b, 0o644); err != nil {
		return sum, common.WrapError(err, "write excel summary")
	}
	logger.Info("ingest.excel.ok", "path", path, "sheets", len(sum.ExtractedFiles), "run_dir", runDir)
	return sum, nil
}

// trimEmptyRows drops blank rows and pads the rest to a common width.
func trimEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	width := 0
	for _, r := range rows {
		blank := true
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		width = max(width, len(r))
		out = append(out, r)
	}
	for i, r := range out {
		if len(r) < width {
			out[i] = append(r, make([]string, width-len(r))...)
		}
	}
	return out
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
