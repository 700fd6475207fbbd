package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/entity"
	"github.com/pranayab18/Data-Extraction/internal/extract"
	"github.com/pranayab18/Data-Extraction/internal/ingest"
	"github.com/pranayab18/Data-Extraction/internal/llm"
	"github.com/pranayab18/Data-Extraction/internal/ocr"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
	"github.com/pranayab18/Data-Extraction/internal/pipeline"
	"github.com/pranayab18/Data-Extraction/internal/repository"
)

func (a *app) schemePath() string {
	return filepath.Join(a.cfg.Paths.FinalOutputDir, a.cfg.Paths.SchemeHeaderFilename)
}

func (a *app) newOCR() *ocr.Extractor {
	return ocr.NewExtractor(ocr.Config{
		Language:    a.cfg.OCR.Language,
		DPI:         a.cfg.OCR.DPI,
		MaxPages:    a.cfg.OCR.MaxPages,
		TessdataDir: a.cfg.OCR.TessdataDir,
		PSM:         6,
	}, a.logger)
}

// newStrategy wires the text chain, both table extractors and the OCR
// fallback.
func (a *app) newStrategy(ocrx *ocr.Extractor) *extract.Strategy {
	text := extract.NewChain(a.logger, extract.PlainText{}, extract.Poppler{Source: ocrx})
	tables := []extract.TableExtractor{
		extract.RowTables{},
		extract.LayoutTables{Source: ocrx},
	}
	return extract.NewStrategy(extract.Config{
		OCREnabled:     a.cfg.OCR.Enabled,
		MinTextChars:   a.cfg.OCR.MinTextChars,
		ImagePageChars: a.cfg.OCR.ImagePageChars,
	}, text, tables, ocrx, a.logger)
}

func (a *app) newClient() *openrouter.Client {
	c := a.cfg.LLM
	cfg := openrouter.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		Model:             c.Model,
		AppURL:            c.AppURL,
		AppName:           c.AppName,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        c.RetryDelay,
		RequestsPerMinute: c.RequestsPerMin,
		InputCostPer1M:    c.InputCostPer1M,
		OutputCostPer1M:   c.OutputCostPer1M,
	}
	if c.CallLogging {
		cfg.CallLogDir = c.CallLogDir
	}
	return openrouter.NewClient(cfg, a.logger)
}

func (a *app) newSchemeExtractor() (*llm.Extractor, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return llm.NewExtractor(llm.Config{
		Model:           a.cfg.LLM.Model,
		Temperature:     a.cfg.LLM.Temperature,
		MaxTokens:       a.cfg.LLM.MaxTokens,
		TopP:            a.cfg.LLM.TopP,
		JSONMode:        true,
		LenientOptional: true,
	}, a.newClient(), a.logger)
}

// ledger is the optional run ledger for one command. A zero ledger is a
// no-op; commands keep working when the database is unavailable.
type ledger struct {
	db   *repository.DB
	runs repository.RunRepository
	docs repository.DocumentRepository
	run  *entity.Run
}

func (a *app) openLedger(ctx context.Context, kind constants.RunKind) *ledger {
	if strings.EqualFold(a.cfg.Ledger.Driver, "none") {
		return &ledger{}
	}
	db, err := repository.Open(ctx, repository.ConfigFrom(a.cfg.Ledger), a.logger)
	if err != nil {
		a.logger.Warn("ledger unavailable, continuing without it", "error", err)
		return &ledger{}
	}
	if err := db.Migrate(ctx); err != nil {
		a.logger.Warn("ledger migration failed, continuing without it", "error", err)
		db.Close()
		return &ledger{}
	}
	l := &ledger{
		db:   db,
		runs: repository.NewRunRepository(db, a.logger),
		docs: repository.NewDocumentRepository(db, a.logger),
	}
	if kind != "" {
		if l.run, err = l.runs.Start(ctx, kind); err != nil {
			a.logger.Warn("could not record run start", "error", err)
		}
	}
	return l
}

// finish stamps the run with the pipeline totals and closes the database.
func (l *ledger) finish(ctx context.Context, sum pipeline.Summary, runErr error) {
	if l.db == nil {
		return
	}
	defer l.db.Close()
	if l.run == nil {
		return
	}
	l.run.Requests = sum.Documents
	l.run.Failures = sum.Failed + sum.LLMFailures
	l.run.TotalTokens = sum.Usage.TotalTokens
	l.run.TotalCost = sum.Usage.Cost
	if runErr != nil {
		msg := runErr.Error()
		l.run.ErrorMessage = &msg
	}
	// the command context may already be cancelled
	_ = l.runs.Finish(context.WithoutCancel(ctx), l.run)
}

// newPipeline builds the processor and pipeline. withLLM adds the scheme
// extractor, which needs an API key.
func (a *app) newPipeline(l *ledger, withLLM bool) (*pipeline.Pipeline, error) {
	var schemes llm.SchemeExtractor
	if withLLM {
		x, err := a.newSchemeExtractor()
		if err != nil {
			return nil, err
		}
		schemes = x
	}

	output := pipeline.NewOutputManager(a.cfg.Paths.OutputDir, a.schemePath(), a.logger)
	var opts []pipeline.ProcessorOption
	if l.docs != nil {
		opts = append(opts, pipeline.WithDocumentStore(l.docs))
	}
	if l.run != nil {
		opts = append(opts, pipeline.WithRunID(l.run.ID))
	}
	proc := pipeline.NewProcessor(a.newStrategy(a.newOCR()), output, a.logger, opts...)

	workDir := filepath.Join(a.cfg.Paths.OutputDir, "_unzipped")
	expander := ingest.NewExpander(workDir, filepath.Join(a.cfg.Paths.OutputDir, "_excel"), a.logger)
	return pipeline.New(proc, expander, output, schemes, a.logger), nil
}

// inputsOrDefault falls back to INPUT_DIR.
func (a *app) inputsOrDefault(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{a.cfg.Paths.InputDir}
}
