package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/ingest"
	"github.com/pranayab18/Data-Extraction/internal/llm"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

const noSubject = "No Subject"

// Summary describes one pipeline invocation.
type Summary struct {
	PDFs        int      `json:"pdfs"`
	Extracted   int      `json:"extracted"`
	Failed      int      `json:"failed"`
	Documents   int      `json:"documents"` // sent to the LLM
	LLMFailures int      `json:"llm_failures"`
	Schemes     int      `json:"schemes"`
	Dropped     int      `json:"dropped"`
	Escalations int      `json:"escalations"`
	SchemePath  string   `json:"scheme_path,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`

	Usage   openrouter.UsageStats `json:"usage"`
	Elapsed time.Duration         `json:"elapsed"`
}

// Pipeline runs extraction and scheme building end to end. Individual
// document failures are logged and skipped.
type Pipeline struct {
	processor *Processor
	expander  *ingest.Expander
	output    *OutputManager
	schemes   llm.SchemeExtractor
	usage     *openrouter.UsageTracker
	logger    *slog.Logger

	// Append merges into an existing scheme file instead of replacing it.
	Append bool
}

// New builds a pipeline. schemes may be nil for extract-only use.
func New(processor *Processor, expander *ingest.Expander, output *OutputManager, schemes llm.SchemeExtractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		processor: processor,
		expander:  expander,
		output:    output,
		schemes:   schemes,
		usage:     openrouter.NewUsageTracker(),
		logger:    logger,
	}
}

// Usage returns the LLM usage accumulated so far.
func (p *Pipeline) Usage() openrouter.UsageStats { return p.usage.Stats() }

// ExtractAll expands zip and excel inputs, then processes every PDF.
func (p *Pipeline) ExtractAll(ctx context.Context, inputs []string) ([]Result, Summary, error) {
	start := time.Now()
	var sum Summary

	exp, err := p.expander.Expand(ctx, inputs)
	if err != nil {
		return nil, sum, err
	}
	sum.Warnings = exp.Warnings
	sum.PDFs = len(exp.PDFs)

	var results []Result
	for i, path := range exp.PDFs {
		if err := ctx.Err(); err != nil {
			return results, sum, err
		}
		p.logger.Info("pipeline.pdf.start", "index", i+1, "total", len(exp.PDFs), "path", path)
		res, err := p.processor.ProcessPDF(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return results, sum, ctx.Err()
			}
			sum.Failed++
			p.logger.Error("pipeline.pdf.skipped", "path", path, "error", err)
			continue
		}
		results = append(results, res)
	}
	sum.Extracted = len(results)
	sum.Elapsed = time.Since(start)
	p.logger.Info("pipeline.extract.done",
		"pdfs", sum.PDFs,
		"extracted", sum.Extracted,
		"failed", sum.Failed,
		"excel", len(exp.Excel),
		"zips", len(exp.Zips),
		"elapsed_ms", sum.Elapsed.Milliseconds(),
	)
	return results, sum, nil
}

// BuildHeaders runs the LLM over every document already in the output
// directory and writes the scheme file.
func (p *Pipeline) BuildHeaders(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary
	if err := p.requireLLM(); err != nil {
		return sum, err
	}

	docs, err := p.output.LoadExtracted()
	if err != nil {
		return sum, err
	}
	if len(docs) == 0 {
		p.logger.Warn("pipeline.headers.no_documents", "dir", p.output.OutputDir)
		return sum, nil
	}

	var all []llm.SchemeHeader
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		p.logger.Info("pipeline.headers.document", "index", i+1, "total", len(docs), "pdf_id", d.PDFID)
		schemes, err := p.extractSchemes(ctx, d.Subject, d.Body, d.SourceFile, &sum)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			continue
		}
		all = append(all, schemes...)
	}
	return p.finish(all, sum, start)
}

// RunFull extracts inputs and builds scheme headers from the fresh results.
func (p *Pipeline) RunFull(ctx context.Context, inputs []string) (Summary, error) {
	start := time.Now()
	if err := p.requireLLM(); err != nil {
		return Summary{}, err
	}
	results, sum, err := p.ExtractAll(ctx, inputs)
	if err != nil {
		return sum, err
	}

	var all []llm.SchemeHeader
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		subject := r.Subject
		if subject == "" {
			subject = noSubject
		}
		schemes, err := p.extractSchemes(ctx, subject, r.CombinedBody(), filepath.Base(r.Path), &sum)
		p.processor.recordSchemes(ctx, r, len(schemes), err)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			continue
		}
		all = append(all, schemes...)
	}
	return p.finish(all, sum, start)
}

func (p *Pipeline) requireLLM() error {
	if p.schemes == nil {
		return common.NewAppError("CONFIG_ERROR", "scheme extraction needs an LLM client", common.ErrInvalidInput)
	}
	return nil
}

func (p *Pipeline) extractSchemes(ctx context.Context, subject, body, source string, sum *Summary) ([]llm.SchemeHeader, error) {
	sum.Documents++
	resp, err := p.schemes.Extract(ctx, subject, body)
	if err != nil {
		sum.LLMFailures++
		p.usage.AddFailure()
		p.logger.Error("pipeline.schemes.failed", "source_file", source, "error", err)
		return nil, err
	}
	p.usage.Add(resp.Model, resp.Usage, resp.Cost)

	for i := range resp.Schemes {
		src := source
		resp.Schemes[i].SourceFile = &src
		if resp.Schemes[i].NeedsEscalation {
			sum.Escalations++
		}
	}
	sum.Dropped += resp.Dropped
	p.logger.Info("pipeline.schemes.ok",
		"source_file", source,
		"schemes", len(resp.Schemes),
		"avg_confidence", resp.AverageConfidence(),
	)
	return resp.Schemes, nil
}

func (p *Pipeline) finish(all []llm.SchemeHeader, sum Summary, start time.Time) (Summary, error) {
	sum.Schemes = len(all)
	sum.Usage = p.usage.Stats()
	sum.Elapsed = time.Since(start)
	if len(all) == 0 {
		p.logger.Warn("pipeline.schemes.none", "documents", sum.Documents)
		return sum, nil
	}

	save := p.output.SaveSchemes
	if p.Append {
		save = p.output.AppendSchemes
	}
	path, err := save(all)
	if err != nil {
		return sum, err
	}
	sum.SchemePath = path
	p.logger.Info("pipeline.done",
		"schemes", sum.Schemes,
		"documents", sum.Documents,
		"llm_failures", sum.LLMFailures,
		"escalations", sum.Escalations,
		"tokens", sum.Usage.TotalTokens,
		"cost", sum.Usage.Cost,
		"path", path,
	)
	return sum, nil
}
