package extract

import "context"

// Poppler extracts text through pdftotext.
type Poppler struct {
	Source LayoutSource
}

func (Poppler) Name() string { return "pdftotext" }

func (p Poppler) ExtractPages(ctx context.Context, path string) ([]string, error) {
	return p.Source.PDFToText(ctx, path)
}
