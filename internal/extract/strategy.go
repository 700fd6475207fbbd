package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/ocr"
)

type Config struct {
	OCREnabled     bool
	MinTextChars   int // below this many non-space characters the whole document is OCR'd
	ImagePageChars int // pages below this are OCR'd individually
}

// Strategy runs text extraction with the OCR fallback and every table
// extractor, merging their tables.
type Strategy struct {
	cfg    Config
	text   TextExtractor
	tables []TableExtractor
	ocr    PageOCR
	logger *slog.Logger
}

func NewStrategy(cfg Config, text TextExtractor, tables []TableExtractor, pageOCR PageOCR, logger *slog.Logger) *Strategy {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = 100
	}
	if cfg.ImagePageChars <= 0 {
		cfg.ImagePageChars = 50
	}
	if pageOCR == nil {
		cfg.OCREnabled = false
	}
	return &Strategy{cfg: cfg, text: text, tables: tables, ocr: pageOCR, logger: logger}
}

type methodExtractor interface {
	ExtractPagesMethod(ctx context.Context, path string) ([]string, string, error)
}

// Extract returns the document's pages, text and tables. It fails with
// common.ErrInsufficientText when neither text extraction nor OCR produced
// anything.
func (s *Strategy) Extract(ctx context.Context, path string) (Document, error) {
	start := time.Now()
	doc := Document{Path: path}

	raw, method, err := s.extractText(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return doc, ctx.Err()
		}
		doc.Warnings = append(doc.Warnings, err.Error())
	}
	doc.Method = method
	doc.Pages = make([]Page, len(raw))
	for i, t := range raw {
		doc.Pages[i] = Page{Number: i + 1, Text: t}
	}

	var fullOCR []ocr.PageText
	if s.cfg.OCREnabled {
		total := nonSpace(strings.Join(raw, ""))
		if total < s.cfg.MinTextChars {
			s.logger.Info("extract.ocr.fallback", "path", path, "chars", total, "min_chars", s.cfg.MinTextChars)
			fullOCR = s.ocrAll(ctx, &doc)
		} else {
			s.ocrSparsePages(ctx, &doc)
		}
	}

	doc.PageCount = len(doc.Pages)
	doc.Text = joinPages(doc.Pages)
	if nonSpace(doc.Text) == 0 {
		doc.Duration = time.Since(start)
		return doc, common.NewAppError("NO_TEXT", path, common.ErrInsufficientText)
	}

	doc.Tables = s.extractTables(ctx, path, fullOCR, &doc)
	doc.Duration = time.Since(start)
	s.logger.Info("extract.document.ok",
		"path", path,
		"pages", doc.PageCount,
		"chars", len(doc.Text),
		"tables", len(doc.Tables),
		"used_ocr", doc.UsedOCR,
		"method", doc.Method,
		"elapsed_ms", doc.Duration.Milliseconds(),
	)
	return doc, nil
}

func (s *Strategy) extractText(ctx context.Context, path string) ([]string, string, error) {
	if m, ok := s.text.(methodExtractor); ok {
		return m.ExtractPagesMethod(ctx, path)
	}
	pages, err := s.text.ExtractPages(ctx, path)
	return pages, s.text.Name(), err
}

// ocrAll replaces the pages with OCR output when OCR produced any text.
func (s *Strategy) ocrAll(ctx context.Context, doc *Document) []ocr.PageText {
	pages, warns, err := s.ocr.OCRPages(ctx, doc.Path, nil)
	doc.Warnings = append(doc.Warnings, warns...)
	if err != nil {
		s.logger.Warn("extract.ocr.failed", "path", doc.Path, "error", err)
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("ocr: %v", err))
		return nil
	}
	var text int
	for _, p := range pages {
		text += nonSpace(p.Text)
	}
	if text == 0 {
		return pages
	}

	byNum := make(map[int]Page, len(doc.Pages))
	for _, p := range doc.Pages {
		byNum[p.Number] = p
	}
	for _, p := range pages {
		byNum[p.Number] = Page{Number: p.Number, Text: p.Text, OCR: true}
	}
	doc.Pages = sortedPages(byNum)
	doc.UsedOCR = true
	doc.Method = "ocr"
	return pages
}

// ocrSparsePages OCRs pages that carry almost no text (scanned inserts in
// an otherwise digital PDF) and keeps whichever version is longer.
func (s *Strategy) ocrSparsePages(ctx context.Context, doc *Document) {
	var sparse []int
	for _, p := range doc.Pages {
		if nonSpace(p.Text) < s.cfg.ImagePageChars {
			sparse = append(sparse, p.Number)
		}
	}
	if len(sparse) == 0 {
		return
	}
	s.logger.Debug("extract.ocr.sparse_pages", "path", doc.Path, "pages", sparse)
	pages, warns, err := s.ocr.OCRPages(ctx, doc.Path, sparse)
	doc.Warnings = append(doc.Warnings, warns...)
	if err != nil {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("ocr: %v", err))
		return
	}
	replaced := 0
	for _, op := range pages {
		i := op.Number - 1
		if i < 0 || i >= len(doc.Pages) {
			continue
		}
		if nonSpace(op.Text) > nonSpace(doc.Pages[i].Text) {
			doc.Pages[i] = Page{Number: op.Number, Text: op.Text, OCR: true}
			replaced++
		}
	}
	if replaced > 0 {
		doc.UsedOCR = true
		doc.Method += "+ocr"
	}
}

func (s *Strategy) extractTables(ctx context.Context, path string, fullOCR []ocr.PageText, doc *Document) []Table {
	var lists [][]Table
	found := 0
	for _, te := range s.tables {
		ts, err := te.ExtractTables(ctx, path)
		if err != nil {
			s.logger.Warn("extract.tables.strategy_failed", "extractor", te.Name(), "path", path, "error", err)
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s: %v", te.Name(), err))
			continue
		}
		found += len(ts)
		lists = append(lists, ts)
	}

	if found == 0 && s.cfg.OCREnabled {
		s.logger.Info("extract.tables.ocr_fallback", "path", path)
		if fullOCR == nil {
			pages, warns, err := s.ocr.OCRPages(ctx, path, nil)
			doc.Warnings = append(doc.Warnings, warns...)
			if err != nil {
				s.logger.Warn("extract.tables.ocr_failed", "path", path, "error", err)
			}
			fullOCR = pages
		}
		lists = append(lists, OCRTables(fullOCR))
	}
	return MergeTables(lists...)
}

func joinPages(pages []Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		header := fmt.Sprintf("--- Page %d ---", p.Number)
		if p.OCR {
			header = fmt.Sprintf("--- OCR Page %d ---", p.Number)
		}
		parts = append(parts, header+"\n"+strings.TrimRight(p.Text, "\n "))
	}
	return strings.Join(parts, "\n\n")
}

func sortedPages(m map[int]Page) []Page {
	max := 0
	for n := range m {
		if n > max {
			max = n
		}
	}
	out := make([]Page, 0, len(m))
	for n := 1; n <= max; n++ {
		if p, ok := m[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

func nonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
