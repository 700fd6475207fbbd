package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pranayab18/Data-Extraction/constants"
)

const maxZipDepth = 3

// Expanded is the result of resolving the command-line inputs.
type Expanded struct {
	PDFs     []string
	Excel    []ExcelSummary
	Zips     []ZipResult
	Warnings []string
}

// Expander turns files and directories into the list of PDFs to process.
// Zips are unpacked into WorkDir and scanned in turn; workbooks are
// converted to CSV under OutDir.
type Expander struct {
	WorkDir    string
	OutDir     string
	SkipHidden bool
	logger     *slog.Logger
}

func NewExpander(workDir, outDir string, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{WorkDir: workDir, OutDir: outDir, SkipHidden: true, logger: logger}
}

// Expand never fails on a single bad input; problems are collected in
// Warnings. It returns an error only when ctx is cancelled.
func (e *Expander) Expand(ctx context.Context, paths []string) (Expanded, error) {
	var out Expanded
	for _, p := range paths {
		if err := e.expand(ctx, p, 0, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (e *Expander) expand(ctx context.Context, path string, depth int, out *Expanded) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		e.warn(out, path, err)
		return nil
	}
	if info.IsDir() {
		inputs, _, err := ScanInputs(ctx, path, e.SkipHidden)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.warn(out, path, err)
			return nil
		}
		for _, in := range inputs {
			if in.Err != "" {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s", in.Path, in.Err))
				continue
			}
			if err := e.file(ctx, in.Path, in.Format, depth, out); err != nil {
				return err
			}
		}
		return nil
	}
	format := Classify(path)
	if format == "" {
		e.warn(out, path, fmt.Errorf("unsupported input type"))
		return nil
	}
	return e.file(ctx, path, format, depth, out)
}

func (e *Expander) file(ctx context.Context, path, format string, depth int, out *Expanded) error {
	switch format {
	case constants.PDF:
		out.PDFs = append(out.PDFs, path)
	case constants.EXCEL:
		sum, err := ExcelToCSV(path, e.OutDir, e.logger)
		if err != nil {
			e.warn(out, path, err)
			return nil
		}
		out.Excel = append(out.Excel, sum)
	case constants.ZIP:
		if depth >= maxZipDepth {
			e.warn(out, path, fmt.Errorf("zip nesting deeper than %d", maxZipDepth))
			return nil
		}
		res, err := ExtractZip(path, e.WorkDir, e.logger)
		if err != nil {
			e.warn(out, path, err)
			return nil
		}
		out.Zips = append(out.Zips, res)
		return e.expand(ctx, res.Dir, depth+1, out)
	}
	return nil
}

func (e *Expander) warn(out *Expanded, path string, err error) {
	e.logger.Warn("ingest.input.skipped", "path", path, "error", err)
	out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", path, err))
}
