package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/entity"
	"github.com/pranayab18/Data-Extraction/internal/extract"
	"github.com/pranayab18/Data-Extraction/internal/ingest"
	"github.com/pranayab18/Data-Extraction/internal/llm"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

var fixed = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

const mailText = "--- Page 1 ---\nSubject: Q2 JBP\nFrom: a@b.com\n\nPlease process the claim."

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (extract.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[filepath.Base(path)]; err != nil {
		return extract.Document{Path: path}, err
	}
	return extract.Document{
		Path:      path,
		Text:      mailText,
		PageCount: 1,
		Method:    "pdf-text",
		Tables: []extract.Table{
			{Page: 1, Index: 1, Rows: [][]string{{"SKU", "Amount"}, {"A1", "10"}}},
			{Page: 1, Index: 2, Rows: [][]string{{" ", ""}}},
		},
	}, nil
}

type fakeDocs struct {
	docs []entity.Document
	err  error
}

func (f *fakeDocs) Upsert(_ context.Context, d *entity.Document) error {
	f.docs = append(f.docs, *d)
	return f.err
}

type fakeSchemes struct {
	fail  map[string]bool // by subject
	calls []string
}

func (f *fakeSchemes) Extract(_ context.Context, subject, body string) (llm.Response, error) {
	f.calls = append(f.calls, subject)
	if f.fail[subject] {
		return llm.Response{}, errors.New("model unavailable")
	}
	name := subject + " support"
	return llm.Response{
		Model:   "test/model",
		Usage:   openrouter.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Cost:    0.01,
		Dropped: 1,
		Schemes: []llm.SchemeHeader{{
			SchemeID:        "id-" + subject,
			SchemeName:      &name,
			SchemeType:      "BUY_SIDE",
			SchemeSubtype:   "PERIODIC_CLAIM",
			Confidence:      0.5,
			NeedsEscalation: true,
		}},
	}, nil
}

func touch(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func newOutput(t *testing.T, root string) *OutputManager {
	t.Helper()
	om := NewOutputManager(filepath.Join(root, "output"), filepath.Join(root, "out", "scheme_header.json"), nil)
	om.now = func() time.Time { return fixed }
	return om
}

func newProcessor(ext DocumentExtractor, om *OutputManager, opts ...ProcessorOption) *Processor {
	p := NewProcessor(ext, om, nil, opts...)
	p.now = func() time.Time { return fixed }
	return p
}

func TestPDFID(t *testing.T) {
	sum := md5.Sum([]byte("in/Mail One.pdf"))
	assert.Equal(t, "Mail One-"+hex.EncodeToString(sum[:])[:8], PDFID("in/Mail One.pdf"))
	assert.NotEqual(t, PDFID("a/x.pdf"), PDFID("b/x.pdf"))
}

func TestProcessor_ProcessPDF(t *testing.T) {
	root := t.TempDir()
	pdf := filepath.Join(root, "in", "Mail One.pdf")
	touch(t, pdf, "%PDF-1.4 one")

	docs := &fakeDocs{}
	ext := &fakeExtractor{}
	om := newOutput(t, root)
	p := newProcessor(ext, om, WithDocumentStore(docs))

	res, err := p.ProcessPDF(t.Context(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "Q2 JBP", res.Subject)
	assert.NotContains(t, res.Text, "From:")
	assert.Contains(t, res.Text, "Please process the claim.")
	require.Len(t, res.Tables, 1, "empty table is dropped")
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, filepath.Join(om.OutputDir, res.PDFID, "20250701_100000"), res.OutputDir)

	text, err := os.ReadFile(filepath.Join(res.OutputDir, res.PDFID+"_full_text.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "Subject: Q2 JBP\n\n"))

	csvData, err := os.ReadFile(filepath.Join(res.OutputDir, res.PDFID+"_page1_table_1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "SKU,Amount\nA1,10\n", string(csvData))
	raw, err := os.ReadFile(filepath.Join(res.OutputDir, res.PDFID+"_summary.json"))
	require.NoError(t, err)
	var ps PDFSummary
	require.NoError(t, json.Unmarshal(raw, &ps))
	assert.Equal(t, "Mail One.pdf", ps.PDFFilename)
	assert.Equal(t, 1, ps.TableCount)
	assert.Equal(t, "Q2 JBP", ps.EmailSubject)
	assert.Equal(t, res.Hash, ps.ContentHash)
	assert.True(t, fixed.Equal(ps.ExtractionTimestamp))

	require.Len(t, docs.docs, 1)
	assert.Equal(t, string(constants.DocumentExtracted), docs.docs[0].Status)
	assert.Equal(t, res.Hash, docs.docs[0].ContentHash)
	assert.Equal(t, 1, docs.docs[0].TableCount)
}

func TestProcessor_CacheByContent(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "in", "a.pdf")
	b := filepath.Join(root, "in", "copy", "b.pdf")
	touch(t, a, "same bytes")
	touch(t, b, "same bytes")

	ext := &fakeExtractor{}
	p := newProcessor(ext, nil)

	first, err := p.ProcessPDF(t.Context(), a)
	require.NoError(t, err)
	second, err := p.ProcessPDF(t.Context(), b)
	require.NoError(t, err)

	assert.Equal(t, 1, ext.calls)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, b, second.Path)
	assert.NotEqual(t, first.PDFID, second.PDFID)
	assert.Equal(t, first.Text, second.Text)

	uncached := newProcessor(ext, nil, WithCacheSize(0))
	_, err = uncached.ProcessPDF(t.Context(), a)
	require.NoError(t, err)
	_, err = uncached.ProcessPDF(t.Context(), a)
	require.NoError(t, err)
	assert.Equal(t, 3, ext.calls)
}

func TestProcessor_Failures(t *testing.T) {
	root := t.TempDir()
	bad := filepath.Join(root, "bad.pdf")
	touch(t, bad, "x")

	docs := &fakeDocs{err: errors.New("ledger down")}
	ext := &fakeExtractor{fail: map[string]error{"bad.pdf": common.NewAppError("NO_TEXT", bad, common.ErrInsufficientText)}}
	p := newProcessor(ext, newOutput(t, root), WithDocumentStore(docs))

	_, err := p.ProcessPDF(t.Context(), bad)
	require.ErrorIs(t, err, common.ErrInsufficientText)
	require.Len(t, docs.docs, 1, "ledger errors do not mask the failure")
	assert.Equal(t, string(constants.DocumentFailed), docs.docs[0].Status)
	require.NotNil(t, docs.docs[0].ErrorMessage)

	_, err = p.ProcessPDF(t.Context(), filepath.Join(root, "missing.pdf"))
	assert.Equal(t, "PDF_READ", common.ErrorCode(err))
}

func TestOutputManager_LoadExtracted(t *testing.T) {
	root := t.TempDir()
	om := newOutput(t, root)
	r := Result{
		Path:    "in/Mail One.pdf",
		Subject: "Q2 JBP",
		Text:    "Please process the claim.",
		Tables:  []extract.Table{{Page: 2, Index: 1, Rows: [][]string{{"SKU", "Amount"}, {"A1", "10"}}}},
	}

	_, err := om.SaveResult(r)
	require.NoError(t, err)
	om.now = func() time.Time { return fixed.Add(time.Hour) }
	r.Text = "Newer text."
	latest, err := om.SaveResult(r)
	require.NoError(t, err)

	docs, err := om.LoadExtracted()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, latest, d.Dir)
	assert.Equal(t, "Q2 JBP", d.Subject)
	assert.Equal(t, "Mail One.pdf", d.SourceFile)
	assert.Contains(t, d.Body, "Newer text.")
	assert.Contains(t, d.Body, "TABLE FROM "+PDFID(r.Path)+"_page2_table_1.csv\nSKU,Amount\nA1,10\n")
	assert.Contains(t, d.Body, "SUMMARY:\n{")

	empty := NewOutputManager(filepath.Join(root, "nope"), "", nil)
	docs, err = empty.LoadExtracted()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestOutputManager_Schemes(t *testing.T) {
	root := t.TempDir()
	om := newOutput(t, root)

	_, err := ReadSchemes(om.SchemePath)
	require.ErrorIs(t, err, common.ErrNotFound)

	a, b := "A", "B"
	_, err = om.SaveSchemes([]llm.SchemeHeader{{SchemeID: "1", SchemeName: &a}})
	require.NoError(t, err)
	_, err = om.AppendSchemes([]llm.SchemeHeader{{SchemeID: "1", SchemeName: &b}, {SchemeID: "2", SchemeName: &b}})
	require.NoError(t, err)

	f, err := ReadSchemes(om.SchemePath)
	require.NoError(t, err)
	assert.Equal(t, 2, f.TotalCount)
	require.Len(t, f.Schemes, 2)
	assert.Equal(t, "B", *f.Schemes[0].SchemeName, "same id replaces")
	assert.Equal(t, fixed, f.GeneratedAt.UTC())

	raw, err := os.ReadFile(om.SchemePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_count": 2`)
	assert.Contains(t, string(raw), `"scheme_name": "B"`)
}

func newPipeline(t *testing.T, root string, ext DocumentExtractor, schemes llm.SchemeExtractor, docs DocumentStore) *Pipeline {
	t.Helper()
	om := newOutput(t, root)
	proc := newProcessor(ext, om, WithDocumentStore(docs))
	exp := ingest.NewExpander(filepath.Join(root, "work"), filepath.Join(root, "output"), nil)
	return New(proc, exp, om, schemes, nil)
}

func TestPipeline_RunFull(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	touch(t, filepath.Join(in, "good.pdf"), "good")
	touch(t, filepath.Join(in, "bad.pdf"), "bad")
	touch(t, filepath.Join(in, "notes.txt"), "ignored")

	ext := &fakeExtractor{fail: map[string]error{"bad.pdf": errors.New("corrupt")}}
	llmStub := &fakeSchemes{}
	docs := &fakeDocs{}
	p := newPipeline(t, root, ext, llmStub, docs)

	sum, err := p.RunFull(t.Context(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.PDFs)
	assert.Equal(t, 1, sum.Extracted)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Documents)
	assert.Equal(t, 1, sum.Schemes)
	assert.Equal(t, 1, sum.Dropped)
	assert.Equal(t, 1, sum.Escalations)
	assert.Equal(t, 15, sum.Usage.TotalTokens)
	assert.Equal(t, []string{"Q2 JBP"}, llmStub.calls)

	f, err := ReadSchemes(sum.SchemePath)
	require.NoError(t, err)
	require.Len(t, f.Schemes, 1)
	require.NotNil(t, f.Schemes[0].SourceFile)
	assert.Equal(t, "good.pdf", *f.Schemes[0].SourceFile)

	last := docs.docs[len(docs.docs)-1]
	assert.Equal(t, string(constants.DocumentSchemesOK), last.Status)
	assert.Equal(t, 1, last.SchemeCount)
}

func TestPipeline_BuildHeaders(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "input")
	touch(t, filepath.Join(in, "one.pdf"), "one")
	touch(t, filepath.Join(in, "two.pdf"), "two")

	p := newPipeline(t, root, &fakeExtractor{}, &fakeSchemes{}, nil)
	_, sum, err := p.ExtractAll(t.Context(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Extracted)

	llmStub := &fakeSchemes{}
	p = newPipeline(t, root, &fakeExtractor{}, llmStub, nil)
	got, err := p.BuildHeaders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Documents)
	// Both mails share a subject, so both schemes share an id but are kept.
	assert.Equal(t, 2, got.Schemes)

	llmStub = &fakeSchemes{fail: map[string]bool{"Q2 JBP": true}}
	p = newPipeline(t, root, &fakeExtractor{}, llmStub, nil)
	got, err = p.BuildHeaders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, got.LLMFailures)
	assert.Zero(t, got.Schemes)
	assert.Empty(t, got.SchemePath)
	assert.Equal(t, 2, got.Usage.Failures)
}

func TestPipeline_NeedsLLM(t *testing.T) {
	p := newPipeline(t, t.TempDir(), &fakeExtractor{}, nil, nil)
	_, err := p.BuildHeaders(t.Context())
	assert.Equal(t, "CONFIG_ERROR", common.ErrorCode(err))
	_, err = p.RunFull(t.Context(), nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPipeline_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "input", "a.pdf"), "a")
	p := newPipeline(t, root, &fakeExtractor{}, &fakeSchemes{}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err := p.ExtractAll(ctx, []string{filepath.Join(root, "input")})
	assert.ErrorIs(t, err, context.Canceled)
}
