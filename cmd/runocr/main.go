package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/extract"
	"github.com/pranayab18/Data-Extraction/internal/ocr"
	"github.com/pranayab18/Data-Extraction/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ocrx := ocr.NewExtractor(ocr.Config{
		Language:    cfg.OCR.Language,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		TessdataDir: cfg.OCR.TessdataDir,
		PSM:         6,
	}, logger)
	strategy := extract.NewStrategy(extract.Config{
		OCREnabled:     cfg.OCR.Enabled,
		MinTextChars:   cfg.OCR.MinTextChars,
		ImagePageChars: cfg.OCR.ImagePageChars,
	},
		extract.NewChain(logger, extract.PlainText{}, extract.Poppler{Source: ocrx}),
		[]extract.TableExtractor{extract.RowTables{}, extract.LayoutTables{Source: ocrx}},
		ocrx, logger)

	// no output manager: nothing is written to disk
	proc := pipeline.NewProcessor(strategy, nil, logger, pipeline.WithCacheSize(0))

	start := time.Now()
	res, err := proc.ProcessPDF(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"pdf_id", res.PDFID,
		"method", res.Method,
		"pages", res.PageCount,
		"tables", len(res.Tables),
		"used_ocr", res.UsedOCR,
		"bytes", len(res.Text),
		"duration_ms", dur.Milliseconds(),
	)
	fmt.Println(res.CombinedBody())
}
