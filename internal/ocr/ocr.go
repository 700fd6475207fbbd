package ocr

import (
	"log/slog"
	"os/exec"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // tesseract language, default "eng"
	DPI         int    // rasterization DPI, default 200
	MaxPages    int    // 0 = no limit
	TessdataDir string

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	TSVConfidence bool // run a second tesseract pass for mean word confidence
}

// PageText is the OCR output of one page.
type PageText struct {
	Number     int
	Text       string
	Confidence float32 // 0 when TSVConfidence is off
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	e := &Extractor{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.runner == nil {
		e.runner = NewExecRunner(logger)
	}
	return e
}

func (e *Extractor) Language() string { return e.cfg.Language }

// ToolStatus reports whether an external binary can be found on PATH.
type ToolStatus struct {
	Name string
	Path string
	Err  error
}

// CheckTools looks up pdftotext, pdftoppm and tesseract.
func (e *Extractor) CheckTools() []ToolStatus {
	bins := []string{e.cfg.Pdftotext, e.cfg.Pdftoppm, e.cfg.Tesseract}
	out := make([]ToolStatus, 0, len(bins))
	for _, b := range bins {
		p, err := exec.LookPath(b)
		out = append(out, ToolStatus{Name: b, Path: p, Err: err})
	}
	return out
}
