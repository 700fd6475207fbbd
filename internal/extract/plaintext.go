package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PlainText reads the PDF content streams with ledongthuc/pdf.
type PlainText struct{}

func (PlainText) Name() string { return "pdf-text" }

func (PlainText) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// PageCount returns the number of pages, or 0 when the file cannot be parsed.
func PageCount(path string) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return r.NumPage()
}
