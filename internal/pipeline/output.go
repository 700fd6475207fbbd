package pipeline

import (
	"bytes"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/extract"
	"github.com/pranayab18/Data-Extraction/internal/ingest"
	"github.com/pranayab18/Data-Extraction/internal/llm"
)

const (
	fullTextSuffix = "_full_text.txt"
	summarySuffix  = "_summary.json"
)

// PDFID is the file stem plus the first eight hex chars of md5(path).
func PDFID(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	sum := md5.Sum([]byte(path))
	return stem + "-" + hex.EncodeToString(sum[:])[:8]
}

// OutputManager owns the on-disk layout:
//
//	<OutputDir>/<pdf_id>/<timestamp>/<pdf_id>_full_text.txt
//	<OutputDir>/<pdf_id>/<timestamp>/<pdf_id>_page<p>_table_<i>.csv
//	<OutputDir>/<pdf_id>/<timestamp>/<pdf_id>_summary.json
//
// and the final scheme_header.json.
type OutputManager struct {
	OutputDir  string
	SchemePath string

	mu     sync.Mutex // serializes scheme file writes
	logger *slog.Logger
	now    func() time.Time
}

func NewOutputManager(outputDir, schemePath string, logger *slog.Logger) *OutputManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutputManager{OutputDir: outputDir, SchemePath: schemePath, logger: logger, now: time.Now}
}

// PDFSummary is the per-PDF <pdf_id>_summary.json.
type PDFSummary struct {
	PDFFilename         string    `json:"pdf_filename"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	PageCount           int       `json:"page_count"`
	TableCount          int       `json:"table_count"`
	UsedOCR             bool      `json:"used_ocr"`
	EmailSubject        string    `json:"email_subject"`
	TextLength          int       `json:"text_length"`
	Method              string    `json:"method,omitempty"`
	ContentHash         string    `json:"content_hash,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
}

// SaveResult writes the text, tables and summary of r and returns the
// timestamped directory it wrote to.
func (m *OutputManager) SaveResult(r Result) (string, error) {
	pdfID := r.PDFID
	if pdfID == "" {
		pdfID = PDFID(r.Path)
	}
	ts := r.ExtractedAt
	if ts.IsZero() {
		ts = m.now()
	}
	dir := filepath.Join(m.OutputDir, pdfID, ts.Format(ingest.TimestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", common.NewAppError("OUTPUT_WRITE", dir, err)
	}

	var text strings.Builder
	if r.Subject != "" {
		text.WriteString("Subject: " + r.Subject + "\n\n")
	}
	text.WriteString(r.Text)
	if err := os.WriteFile(filepath.Join(dir, pdfID+fullTextSuffix), []byte(text.String()), 0o644); err != nil {
		return "", common.NewAppError("OUTPUT_WRITE", dir, err)
	}

	for n, t := range r.Tables {
		name := fmt.Sprintf("%s_table_%d.csv", pdfID, n+1)
		if t.Page > 0 {
			name = fmt.Sprintf("%s_page%d_table_%d.csv", pdfID, t.Page, t.Index)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(TableCSV(t)), 0o644); err != nil {
			return "", common.NewAppError("OUTPUT_WRITE", dir, err)
		}
	}

	sum := PDFSummary{
		PDFFilename:         filepath.Base(r.Path),
		ExtractionTimestamp: ts,
		PageCount:           r.PageCount,
		TableCount:          len(r.Tables),
		UsedOCR:             r.UsedOCR,
		EmailSubject:        r.Subject,
		TextLength:          len(r.Text),
		Method:              r.Method,
		ContentHash:         r.Hash,
		Warnings:            r.Warnings,
	}
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, pdfID+summarySuffix), b, 0o644); err != nil {
		return "", common.NewAppError("OUTPUT_WRITE", dir, err)
	}

	m.logger.Info("pipeline.output.saved", "pdf_id", pdfID, "dir", dir, "tables", len(r.Tables), "chars", len(r.Text))
	return dir, nil
}

// TableCSV renders a table as CSV text.
func TableCSV(t extract.Table) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(t.Rows)
	return buf.String()
}

// Extracted is one previously extracted PDF reassembled for the LLM.
type Extracted struct {
	PDFID      string
	Dir        string
	Subject    string
	Body       string
	SourceFile string
}

// LoadExtracted walks OutputDir and rebuilds every extracted document:
// the full text, each of its CSV tables as a "TABLE FROM <file>" block and
// the summary. When a PDF was extracted more than once the latest
// timestamp wins.
func (m *OutputManager) LoadExtracted() ([]Extracted, error) {
	if _, err := os.Stat(m.OutputDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []Extracted
	seen := map[string]int{}
	err := filepath.WalkDir(m.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), fullTextSuffix) {
			return nil
		}
		doc, err := m.loadOne(filepath.Dir(path), strings.TrimSuffix(d.Name(), fullTextSuffix))
		if err != nil {
			m.logger.Warn("pipeline.output.load_failed", "path", path, "error", err)
			return nil
		}
		// Lexical walk order visits older timestamps first.
		if i, ok := seen[doc.PDFID]; ok {
			out[i] = doc
			return nil
		}
		seen[doc.PDFID] = len(out)
		out = append(out, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("pipeline.output.loaded", "dir", m.OutputDir, "documents", len(out))
	return out, nil
}

func (m *OutputManager) loadOne(dir, base string) (Extracted, error) {
	raw, err := os.ReadFile(filepath.Join(dir, base+fullTextSuffix))
	if err != nil {
		return Extracted{}, err
	}
	text := string(raw)
	doc := Extracted{PDFID: base, Dir: dir, SourceFile: base + ".pdf"}

	doc.Subject = extract.ExtractSubject(text)
	if doc.Subject == "" {
		doc.Subject = base
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Extracted{}, err
	}
	var tables []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), base) && strings.HasSuffix(e.Name(), ".csv") {
			tables = append(tables, e.Name())
		}
	}
	sort.Strings(tables)

	var body strings.Builder
	body.WriteString(text)
	for _, name := range tables {
		rows, err := readCSV(filepath.Join(dir, name))
		if err != nil {
			m.logger.Warn("pipeline.output.table_unreadable", "file", name, "error", err)
			continue
		}
		body.WriteString("\n\nTABLE FROM " + name + "\n")
		body.WriteString(TableCSV(extract.Table{Rows: rows}))
	}

	if b, err := os.ReadFile(filepath.Join(dir, base+summarySuffix)); err == nil {
		var sum PDFSummary
		var pretty bytes.Buffer
		if json.Unmarshal(b, &sum) == nil && json.Indent(&pretty, b, "", "  ") == nil {
			if sum.PDFFilename != "" {
				doc.SourceFile = sum.PDFFilename
			}
			body.WriteString("\n\nSUMMARY:\n" + pretty.String())
		} else {
			m.logger.Warn("pipeline.output.summary_unreadable", "dir", dir)
		}
	}
	doc.Body = body.String()
	return doc, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// SchemeFile is the shape of scheme_header.json.
type SchemeFile struct {
	Schemes     []llm.SchemeHeader `json:"schemes"`
	TotalCount  int                `json:"total_count"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// SaveSchemes replaces the scheme file with schemes.
func (m *OutputManager) SaveSchemes(schemes []llm.SchemeHeader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeSchemes(schemes)
}

// AppendSchemes merges schemes into the existing file. A scheme whose id
// is already present replaces the old entry.
func (m *OutputManager) AppendSchemes(schemes []llm.SchemeHeader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := ReadSchemes(m.SchemePath)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return "", err
	}
	index := make(map[string]int, len(existing.Schemes))
	merged := existing.Schemes
	for i, s := range merged {
		index[s.SchemeID] = i
	}
	for _, s := range schemes {
		if i, ok := index[s.SchemeID]; ok && s.SchemeID != "" {
			merged[i] = s
			continue
		}
		index[s.SchemeID] = len(merged)
		merged = append(merged, s)
	}
	return m.writeSchemes(merged)
}

func (m *OutputManager) writeSchemes(schemes []llm.SchemeHeader) (string, error) {
	if schemes == nil {
		schemes = []llm.SchemeHeader{}
	}
	if err := os.MkdirAll(filepath.Dir(m.SchemePath), 0o755); err != nil {
		return "", common.NewAppError("OUTPUT_WRITE", m.SchemePath, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(SchemeFile{Schemes: schemes, TotalCount: len(schemes), GeneratedAt: m.now()}); err != nil {
		return "", err
	}
	tmp := m.SchemePath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return "", common.NewAppError("OUTPUT_WRITE", m.SchemePath, err)
	}
	if err := os.Rename(tmp, m.SchemePath); err != nil {
		return "", common.NewAppError("OUTPUT_WRITE", m.SchemePath, err)
	}
	m.logger.Info("pipeline.schemes.saved", "path", m.SchemePath, "count", len(schemes))
	return m.SchemePath, nil
}

// ReadSchemes loads a scheme_header.json. A missing file is ErrNotFound.
func ReadSchemes(path string) (SchemeFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return SchemeFile{}, common.NewAppError("SCHEMES_MISSING", path, common.ErrNotFound)
		}
		return SchemeFile{}, err
	}
	var f SchemeFile
	if err := json.Unmarshal(b, &f); err != nil {
		return SchemeFile{}, common.NewAppError("SCHEMES_DECODE", path, fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	return f, nil
}
