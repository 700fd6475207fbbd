package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/clean"
	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/entity"
	"github.com/pranayab18/Data-Extraction/internal/extract"
	"github.com/pranayab18/Data-Extraction/internal/ingest"
)

// DefaultCacheSize is the number of extraction results kept by content hash.
const DefaultCacheSize = 256

// DocumentExtractor produces text and tables for one PDF.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) (extract.Document, error)
}

// DocumentStore records processed PDFs in the run ledger.
type DocumentStore interface {
	Upsert(ctx context.Context, d *entity.Document) error
}

// Result is one cleaned PDF extraction.
type Result struct {
	Path        string
	PDFID       string
	Hash        string
	Subject     string
	Text        string
	Tables      []extract.Table
	PageCount   int
	UsedOCR     bool
	Method      string
	Warnings    []string
	OutputDir   string
	ExtractedAt time.Time
	Cached      bool
}

// CombinedBody is the text followed by every table as CSV.
func (r Result) CombinedBody() string {
	var b strings.Builder
	b.WriteString(r.Text)
	for i, t := range r.Tables {
		fmt.Fprintf(&b, "\n\nTABLE %d:\n%s", i+1, TableCSV(t))
	}
	return b.String()
}

// Processor extracts, cleans and persists single PDFs.
type Processor struct {
	extractor DocumentExtractor
	content   *clean.ContentCleaner
	tables    *clean.TableCleaner
	output    *OutputManager
	cache     *lru.Cache[string, Result]
	docs      DocumentStore
	runID     *uuid.UUID
	logger    *slog.Logger
	now       func() time.Time
}

type ProcessorOption func(*Processor)

// WithCacheSize sets the LRU size; zero or less disables caching.
func WithCacheSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n <= 0 {
			p.cache = nil
			return
		}
		p.cache, _ = lru.New[string, Result](n)
	}
}

func WithDocumentStore(s DocumentStore) ProcessorOption {
	return func(p *Processor) { p.docs = s }
}

// WithRunID tags ledger rows with the current run.
func WithRunID(id uuid.UUID) ProcessorOption {
	return func(p *Processor) { p.runID = &id }
}

// NewProcessor wires an extractor to the cleaners. output may be nil, in
// which case nothing is written to disk.
func NewProcessor(extractor DocumentExtractor, output *OutputManager, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		extractor: extractor,
		content:   clean.NewContentCleaner(logger),
		tables:    clean.NewTableCleaner(logger),
		output:    output,
		logger:    logger,
		now:       time.Now,
	}
	p.cache, _ = lru.New[string, Result](DefaultCacheSize)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessPDF extracts and cleans path, saves the outputs and records the
// document. Identical content seen earlier is served from the cache.
func (p *Processor) ProcessPDF(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	hash, err := ingest.HashFile(path)
	if err != nil {
		return Result{Path: path}, common.NewAppError("PDF_READ", path, err)
	}

	res, hit := p.lookup(hash)
	if hit {
		p.logger.Info("pipeline.pdf.cache_hit", "path", path, "hash", hash)
		res.Path = path
		res.PDFID = PDFID(path)
		res.ExtractedAt = p.now()
		res.Cached = true
	} else {
		doc, err := p.extractor.Extract(ctx, path)
		if err != nil {
			p.logger.Error("pipeline.pdf.failed", "path", path, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			p.record(ctx, Result{Path: path, PDFID: PDFID(path), Hash: hash}, err)
			return Result{Path: path, Hash: hash}, err
		}
		res = p.cleanDocument(doc, hash)
		if p.cache != nil {
			p.cache.Add(hash, res)
		}
	}

	if p.output != nil {
		dir, err := p.output.SaveResult(res)
		if err != nil {
			p.record(ctx, res, err)
			return res, err
		}
		res.OutputDir = dir
	}
	p.record(ctx, res, nil)

	p.logger.Info("pipeline.pdf.ok",
		"path", path,
		"pdf_id", res.PDFID,
		"pages", res.PageCount,
		"tables", len(res.Tables),
		"used_ocr", res.UsedOCR,
		"cached", res.Cached,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Processor) lookup(hash string) (Result, bool) {
	if p.cache == nil {
		return Result{}, false
	}
	return p.cache.Get(hash)
}

func (p *Processor) cleanDocument(doc extract.Document, hash string) Result {
	return Result{
		Path:        doc.Path,
		PDFID:       PDFID(doc.Path),
		Hash:        hash,
		Subject:     extract.ExtractSubject(doc.Text),
		Text:        p.content.Clean(doc.Text),
		Tables:      p.tables.CleanAll(doc.Tables),
		PageCount:   doc.PageCount,
		UsedOCR:     doc.UsedOCR,
		Method:      doc.Method,
		Warnings:    doc.Warnings,
		ExtractedAt: p.now(),
	}
}

// record writes the ledger row. Ledger failures are logged, never returned.
func (p *Processor) record(ctx context.Context, r Result, procErr error) {
	p.recordStatus(ctx, r, constants.DocumentExtracted, 0, procErr)
}

// recordSchemes marks a document as having gone through the LLM.
func (p *Processor) recordSchemes(ctx context.Context, r Result, schemes int, llmErr error) {
	p.recordStatus(ctx, r, constants.DocumentSchemesOK, schemes, llmErr)
}

func (p *Processor) recordStatus(ctx context.Context, r Result, status constants.DocumentStatus, schemes int, cause error) {
	if p.docs == nil {
		return
	}
	d := &entity.Document{
		RunID:       p.runID,
		ContentHash: r.Hash,
		SourcePath:  r.Path,
		PDFID:       r.PDFID,
		OutputDir:   r.OutputDir,
		PageCount:   r.PageCount,
		TableCount:  len(r.Tables),
		UsedOCR:     r.UsedOCR,
		Method:      r.Method,
		SchemeCount: schemes,
		Status:      string(status),
	}
	if cause != nil {
		msg := cause.Error()
		d.Status = string(constants.DocumentFailed)
		d.ErrorMessage = &msg
	}
	if err := p.docs.Upsert(ctx, d); err != nil {
		p.logger.Warn("pipeline.ledger.upsert_failed", "path", d.SourcePath, "error", err)
	}
}
