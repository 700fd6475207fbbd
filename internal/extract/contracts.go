package extract

import (
	"context"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/ocr"
)

// Page is the text of one page, 1-based.
type Page struct {
	Number int
	Text   string
	OCR    bool
}

// Table is a grid of cells; Rows[0] is the header row.
type Table struct {
	Page      int
	Index     int
	Rows      [][]string
	Extractor string
}

// Shape returns the row count and the widest row.
func (t Table) Shape() (rows, cols int) {
	for _, r := range t.Rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	return len(t.Rows), cols
}

// Document is everything extracted from one PDF.
type Document struct {
	Path      string
	Pages     []Page
	PageCount int
	Text      string
	Tables    []Table
	UsedOCR   bool
	Method    string
	Warnings  []string
	Duration  time.Duration
}

// TextExtractor returns one string per page.
type TextExtractor interface {
	Name() string
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

type TableExtractor interface {
	Name() string
	ExtractTables(ctx context.Context, path string) ([]Table, error)
}

// PageOCR renders and recognizes pages; an empty list means every page.
type PageOCR interface {
	OCRPages(ctx context.Context, path string, pages []int) ([]ocr.PageText, []string, error)
}

// LayoutSource yields pdftotext -layout output per page.
type LayoutSource interface {
	PDFToText(ctx context.Context, path string) ([]string, error)
}
