package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/ocr"
)

type stubText struct {
	name  string
	pages []string
	err   error
}

func (s stubText) Name() string { return s.name }

func (s stubText) ExtractPages(context.Context, string) ([]string, error) {
	return s.pages, s.err
}

type stubOCR struct {
	mu    sync.Mutex
	calls [][]int
	pages map[int]string
	err   error
}

func (s *stubOCR) OCRPages(_ context.Context, _ string, pages []int) ([]ocr.PageText, []string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, pages)
	s.mu.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	want := pages
	if len(want) == 0 {
		for n := range s.pages {
			want = append(want, n)
		}
	}
	var out []ocr.PageText
	for n := 1; n <= 10; n++ {
		for _, w := range want {
			if w == n {
				out = append(out, ocr.PageText{Number: n, Text: s.pages[n]})
			}
		}
	}
	return out, nil, nil
}

type stubTables struct {
	tables []Table
	err    error
}

func (stubTables) Name() string { return "stub" }

func (s stubTables) ExtractTables(context.Context, string) ([]Table, error) {
	return s.tables, s.err
}

type stubLayout map[string][]string

func (s stubLayout) PDFToText(_ context.Context, path string) ([]string, error) {
	p, ok := s[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return p, nil
}

var longText = strings.Repeat("Scheme support details for the quarter. ", 10)

func TestStrategy_OCRFallbackOnEmptyText(t *testing.T) {
	o := &stubOCR{pages: map[int]string{1: "scanned page one " + longText, 2: "scanned page two"}}
	s := NewStrategy(Config{OCREnabled: true}, stubText{name: "pdf-text", pages: []string{"", " "}}, nil, o, nil)

	doc, err := s.Extract(t.Context(), "scan.pdf")
	require.NoError(t, err)
	require.Len(t, o.calls, 1, "table fallback reuses the full OCR pass")
	assert.Empty(t, o.calls[0])
	assert.True(t, doc.UsedOCR)
	assert.Equal(t, "ocr", doc.Method)
	assert.Equal(t, 2, doc.PageCount)
	assert.True(t, strings.HasPrefix(doc.Text, "--- OCR Page 1 ---\nscanned page one"))
	assert.Contains(t, doc.Text, "--- OCR Page 2 ---\nscanned page two")
}

func TestStrategy_OCRFallbackOnInsufficientText(t *testing.T) {
	o := &stubOCR{pages: map[int]string{1: longText}}
	s := NewStrategy(Config{OCREnabled: true, MinTextChars: 100}, stubText{name: "pdf-text", pages: []string{"Mail - short"}}, nil, o, nil)

	doc, err := s.Extract(t.Context(), "x.pdf")
	require.NoError(t, err)
	assert.True(t, doc.UsedOCR)
	assert.Contains(t, doc.Text, "--- OCR Page 1 ---")
}

func TestStrategy_NoOCRWhenTextIsSufficient(t *testing.T) {
	o := &stubOCR{pages: map[int]string{}}
	s := NewStrategy(Config{OCREnabled: true}, stubText{name: "pdf-text", pages: []string{longText}},
		[]TableExtractor{stubTables{tables: []Table{{Page: 1, Rows: [][]string{{"a", "b"}, {"1", "2"}}}}}}, o, nil)

	doc, err := s.Extract(t.Context(), "x.pdf")
	require.NoError(t, err)
	assert.Empty(t, o.calls)
	assert.False(t, doc.UsedOCR)
	assert.Equal(t, "pdf-text", doc.Method)
	assert.Equal(t, "--- Page 1 ---\n"+strings.TrimRight(longText, " "), doc.Text)
	assert.Len(t, doc.Tables, 1)
}

func TestStrategy_SparsePagesAreOCRd(t *testing.T) {
	o := &stubOCR{pages: map[int]string{2: "invoice table scanned from an image insert with plenty of words"}}
	s := NewStrategy(Config{OCREnabled: true},
		stubText{name: "pdf-text", pages: []string{longText, "", longText}},
		[]TableExtractor{stubTables{tables: []Table{{Page: 1, Rows: [][]string{{"a", "b"}, {"1", "2"}}}}}}, o, nil)

	doc, err := s.Extract(t.Context(), "x.pdf")
	require.NoError(t, err)
	require.Len(t, o.calls, 1)
	assert.Equal(t, []int{2}, o.calls[0])
	assert.True(t, doc.Pages[1].OCR)
	assert.False(t, doc.Pages[0].OCR)
	assert.Equal(t, "pdf-text+ocr", doc.Method)
	assert.Contains(t, doc.Text, "--- OCR Page 2 ---")
}

func TestStrategy_EmptyTextWithoutOCRFails(t *testing.T) {
	s := NewStrategy(Config{OCREnabled: false}, stubText{name: "pdf-text", pages: []string{""}}, nil, nil, nil)
	_, err := s.Extract(t.Context(), "x.pdf")
	require.ErrorIs(t, err, common.ErrInsufficientText)
}

func TestStrategy_OCRErrorIsAWarning(t *testing.T) {
	o := &stubOCR{err: errors.New("tesseract missing")}
	s := NewStrategy(Config{OCREnabled: true}, stubText{name: "pdf-text", pages: []string{"tiny but present"}}, nil, o, nil)
	doc, err := s.Extract(t.Context(), "x.pdf")
	require.NoError(t, err)
	assert.False(t, doc.UsedOCR)
	assert.Contains(t, strings.Join(doc.Warnings, "\n"), "tesseract missing")
}

func TestStrategy_TablesFallBackToOCR(t *testing.T) {
	o := &stubOCR{pages: map[int]string{1: "Model    NLC     Support\nA100     1000    50\nB200     2000    75"}}
	s := NewStrategy(Config{OCREnabled: true}, stubText{name: "pdf-text", pages: []string{longText}},
		[]TableExtractor{stubTables{err: errors.New("broken")}}, o, nil)

	doc, err := s.Extract(t.Context(), "x.pdf")
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, "ocr", doc.Tables[0].Extractor)
	assert.Equal(t, []string{"A100", "1000", "50"}, doc.Tables[0].Rows[1])
	assert.Contains(t, strings.Join(doc.Warnings, "\n"), "broken")
}

func TestChain(t *testing.T) {
	c := NewChain(nil,
		stubText{name: "broken", err: errors.New("bad xref")},
		stubText{name: "empty", pages: []string{" "}},
		stubText{name: "poppler", pages: []string{"text"}},
	)
	pages, method, err := c.ExtractPagesMethod(t.Context(), "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "poppler", method)
	assert.Equal(t, []string{"text"}, pages)

	c = NewChain(nil, stubText{name: "empty", pages: []string{""}})
	_, method, err = c.ExtractPagesMethod(t.Context(), "x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "empty", method)

	c = NewChain(nil, stubText{name: "broken", err: errors.New("bad xref")})
	_, err = c.ExtractPages(t.Context(), "x.pdf")
	require.ErrorContains(t, err, "bad xref")
}

func TestLayoutTables(t *testing.T) {
	page := strings.Join([]string{
		"Dear Partner,",
		"Please find the support below.",
		"",
		"Model      NLC       Support   Start",
		"A100       1,000     50        01-04-2024",
		"B200       2,000     75",
		"",
		"Regards  Team",
	}, "\n")
	lt := LayoutTables{Source: stubLayout{"x.pdf": {page, "no tables here"}}}
	tables, err := lt.ExtractTables(t.Context(), "x.pdf")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	tb := tables[0]
	assert.Equal(t, 1, tb.Page)
	rows, cols := tb.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)
	assert.Equal(t, []string{"B200", "2,000", "75", ""}, tb.Rows[2])
}

func TestRowCells(t *testing.T) {
	texts := pdf.TextHorizontal{
		{X: 60, W: 6, S: "B", FontSize: 10},
		{X: 10, W: 6, S: "S", FontSize: 10},
		{X: 16, W: 6, S: "K", FontSize: 10},
		{X: 25, W: 6, S: "U", FontSize: 10},
		{X: 66, W: 6, S: "2", FontSize: 10},
	}
	assert.Equal(t, []string{"SK U", "B2"}, rowCells(texts, 1.5))
	assert.Nil(t, rowCells(pdf.TextHorizontal{{X: 1, W: 1, S: "x"}}, 1.5))
}

func TestMergeTables(t *testing.T) {
	a := []Table{
		{Page: 2, Index: 0, Rows: [][]string{{"h1", "h2"}, {"1", "2"}}, Extractor: "rows"},
		{Page: 1, Index: 0, Rows: [][]string{{"x", "y"}, {"3", "4"}}, Extractor: "rows"},
	}
	b := []Table{
		{Page: 2, Index: 0, Rows: [][]string{{"h1", "h2"}, {"1", "2"}}, Extractor: "layout"},
		{Page: 2, Index: 1, Rows: [][]string{{"h1", "h2"}, {"1", "9"}}, Extractor: "layout"},
	}
	out := MergeTables(a, b)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].Page)
	assert.Equal(t, "rows", out[1].Extractor, "first occurrence wins")
	assert.Equal(t, 0, out[1].Index)
	assert.Equal(t, 1, out[2].Index)
	assert.Empty(t, MergeTables())
}

func TestExtractSubject(t *testing.T) {
	assert.Equal(t, "Q1 JBP support", ExtractSubject("--- Page 1 ---\nFrom: a\nSubject: Q1 JBP support\n"))
	assert.Equal(t, "Price drop on A100", ExtractSubject("12/03/2024, 10:15   Gmail Mail - Price drop on A100\nbody"))
	assert.Equal(t, "First line", ExtractSubject("\n\n  First line \nsecond"))
	assert.Equal(t, "", ExtractSubject(""))
}
