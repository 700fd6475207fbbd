package extract

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pranayab18/Data-Extraction/internal/ocr"
)

var reColumnGap = regexp.MustCompile(`\s{2,}`)

// LayoutTables finds tables in pdftotext -layout output, where columns are
// separated by runs of two or more spaces.
type LayoutTables struct {
	Source LayoutSource
}

func (LayoutTables) Name() string { return "layout" }

func (l LayoutTables) ExtractTables(ctx context.Context, path string) ([]Table, error) {
	pages, err := l.Source.PDFToText(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []Table
	for i, p := range pages {
		out = append(out, detectTables(splitLayoutLines(p), i+1, l.Name())...)
	}
	return out, nil
}

// OCRTables runs the layout detector over OCR page text.
func OCRTables(pages []ocr.PageText) []Table {
	var out []Table
	for _, p := range pages {
		out = append(out, detectTables(splitLayoutLines(p.Text), p.Number, "ocr")...)
	}
	return out
}

func splitLayoutLines(text string) [][]string {
	lines := strings.Split(text, "\n")
	rows := make([][]string, len(lines))
	for i, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		rows[i] = reColumnGap.Split(ln, -1)
	}
	return rows
}

// RowTables groups the positioned text of each page into rows and splits
// rows into cells wherever the horizontal gap is wider than the font.
type RowTables struct {
	// GapFactor scales the font size into the minimum cell gap; default 1.5.
	GapFactor float64
}

func (RowTables) Name() string { return "rows" }

func (rt RowTables) ExtractTables(ctx context.Context, path string) (tables []Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	gap := rt.GapFactor
	if gap <= 0 {
		gap = 1.5
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		// top of the page first
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })

		cells := make([][]string, 0, len(rows))
		for _, row := range rows {
			cells = append(cells, rowCells(row.Content, gap))
		}
		tables = append(tables, detectTables(cells, i, rt.Name())...)
	}
	return tables, nil
}

func rowCells(texts pdf.TextHorizontal, gapFactor float64) []string {
	if len(texts) == 0 {
		return nil
	}
	sort.SliceStable(texts, func(a, b int) bool { return texts[a].X < texts[b].X })

	var (
		cells []string
		cur   strings.Builder
		end   = texts[0].X
	)
	for i, t := range texts {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		gap := t.X - end
		switch {
		case i > 0 && gap > size*gapFactor:
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		case i > 0 && gap > size*0.2:
			cur.WriteByte(' ')
		}
		cur.WriteString(t.S)
		end = t.X + t.W
	}
	cells = append(cells, strings.TrimSpace(cur.String()))
	if len(cells) < 2 {
		return nil
	}
	return cells
}

// detectTables turns runs of consecutive multi-cell rows into tables. A nil
// or single-cell row ends a run. A run needs two rows of equal width, at
// least two cells each.
func detectTables(rows [][]string, page int, extractor string) []Table {
	var (
		out []Table
		run [][]string
	)
	flush := func() {
		if isTable(run) {
			out = append(out, Table{Page: page, Index: len(out), Rows: pad(run), Extractor: extractor})
		}
		run = nil
	}
	for _, r := range rows {
		if len(r) < 2 {
			flush()
			continue
		}
		run = append(run, r)
	}
	flush()
	return out
}

func isTable(run [][]string) bool {
	if len(run) < 2 {
		return false
	}
	widths := map[int]int{}
	for _, r := range run {
		widths[len(r)]++
		if widths[len(r)] >= 2 {
			return true
		}
	}
	return false
}

func pad(run [][]string) [][]string {
	cols := 0
	for _, r := range run {
		if len(r) > cols {
			cols = len(r)
		}
	}
	out := make([][]string, len(run))
	for i, r := range run {
		row := make([]string, cols)
		copy(row, r)
		out[i] = row
	}
	return out
}
