package gridsearch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Columns is the CSV header, in order.
var Columns = []string{
	"timestamp", "document", "field", "model", "temperature", "max_tokens",
	"top_p", "prompt", "raw_output", "success", "error",
}

const timestampLayout = "2006-01-02 15:04:05"

// Row is one API request.
type Row struct {
	Timestamp   time.Time
	Document    string
	Field       string
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Prompt      string
	RawOutput   string
	Success     bool
	Error       string
}

func (r Row) Record() []string {
	return []string{
		r.Timestamp.Format(timestampLayout),
		r.Document,
		r.Field,
		r.Model,
		strconv.FormatFloat(r.Temperature, 'f', -1, 64),
		strconv.Itoa(r.MaxTokens),
		strconv.FormatFloat(r.TopP, 'f', -1, 64),
		r.Prompt,
		r.RawOutput,
		strconv.FormatBool(r.Success),
		r.Error,
	}
}

// CSVWriter appends rows to a results file, one flushed row per request.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

// NewCSVWriter opens path for appending and writes the header when the file
// is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create csv dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat csv: %w", err)
	}

	cw := &CSVWriter{path: path, f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := cw.flush(Columns); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return cw, nil
}

func (c *CSVWriter) Path() string { return c.path }

func (c *CSVWriter) Write(r Row) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flush(r.Record())
}

func (c *CSVWriter) flush(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}
