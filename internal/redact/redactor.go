package redact

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

// MappingFile is written at the root of the redacted tree.
const MappingFile = "pii_mapping.json"

var (
	reForwardMarker = regexp.MustCompile(`(?i)^-+\s*forwarded message\s*-+$`)
	rePrintHeader   = regexp.MustCompile(`^\d+/\d+/\d+,\s+\d+:\d+\s+[AP]M\s+.*Mail.*$`)
	rePageSeparator = regexp.MustCompile(`(?i)^---\s*(ocr\s+)?page\s+\d+\s*---$`)
	reSubjectLine   = regexp.MustCompile(`(?i)^subject:\s*(.+)$`)
	reBarePhone     = regexp.MustCompile(`^\d{10}$`)

	signatureLines = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^thanks\s*&\s*regards$`),
		regexp.MustCompile(`(?i)^best\s+regards,?$`),
		regexp.MustCompile(`(?i)^regards,?$`),
		regexp.MustCompile(`(?i)^thanks,?$`),
		regexp.MustCompile(`(?i)^no\.\s*\d+.*road$`),
		regexp.MustCompile(`(?i)^\d{6}\s+\w+$`),
		regexp.MustCompile(`(?i)^india$`),
		regexp.MustCompile(`(?i)^director\s+.*$`),
	}
	disclaimerLines = []*regexp.Regexp{
		regexp.MustCompile(`(?i)this email.*confidential`),
		regexp.MustCompile(`(?i)if you.*not the intended recipient`),
		regexp.MustCompile(`(?i)please.*delete.*email`),
		regexp.MustCompile(`(?i)confidentiality notice`),
		regexp.MustCompile(`(?i)disclaimer`),
	}
)

// Redactor removes mail chrome that survives extraction and, when a
// Masker is set, masks PII in what remains.
type Redactor struct {
	Masker *Masker
	logger *slog.Logger
}

func NewRedactor(m *Masker, logger *slog.Logger) *Redactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redactor{Masker: m, logger: logger}
}

// Redact drops forwarded markers, print headers, repeated subjects, FYI
// lines, disclaimer lines and signature lines. Page separators are kept.
func (r *Redactor) Redact(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	subject := false
	skipBlank := 0
	inSignature := false

	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			if skipBlank > 0 {
				skipBlank--
				continue
			}
			out = append(out, line)
			continue
		}
		switch {
		case reForwardMarker.MatchString(s):
			skipBlank = 2
			continue
		case rePrintHeader.MatchString(s):
			continue
		case rePageSeparator.MatchString(s):
			inSignature = false
			out = append(out, line)
			continue
		}
		if m := reSubjectLine.FindStringSubmatch(s); m != nil {
			if !subject {
				out = append(out, "Subject: "+strings.TrimSpace(m[1]))
				subject = true
			}
			continue
		}
		if strings.EqualFold(s, "FYI") || matchesAny(disclaimerLines, s) {
			continue
		}
		if matchesAny(signatureLines, s) {
			inSignature = true
			continue
		}
		// Phone numbers directly under a signature are part of it.
		if inSignature && reBarePhone.MatchString(s) {
			continue
		}
		inSignature = false
		out = append(out, line)
	}

	result := strings.Join(collapseBlank(out, 2), "\n")
	if r.Masker != nil {
		result = r.Masker.Mask(result)
	}
	return result
}

func collapseBlank(lines []string, keep int) []string {
	out := lines[:0]
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			n++
			if n > keep {
				continue
			}
		} else {
			n = 0
		}
		out = append(out, l)
	}
	return out
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Stats counts what RedactDir produced.
type Stats struct {
	TextFiles int
	CSVFiles  int
	Failed    int
}

// RedactDir mirrors every *_full_text.txt and *.csv under in into out,
// redacting text files and masking CSVs. Per-file failures are logged and
// counted; the walk continues. The PII mapping is saved to out/pii_mapping.json
// when masking is on.
func (r *Redactor) RedactDir(ctx context.Context, in, out string) (Stats, error) {
	var st Stats
	if _, err := os.Stat(in); err != nil {
		return st, common.NewAppError("REDACT_INPUT", "input directory not readable", err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return st, common.WrapError(err, "create output directory")
	}

	err := filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			// out may live under in
			if filepath.Clean(path) == filepath.Clean(out) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		isText := strings.HasSuffix(name, "_full_text.txt")
		isCSV := strings.EqualFold(filepath.Ext(name), ".csv")
		if !isText && !isCSV {
			return nil
		}
		rel, err := filepath.Rel(in, path)
		if err != nil {
			return err
		}
		if ferr := r.redactFile(path, filepath.Join(out, rel), isText); ferr != nil {
			st.Failed++
			r.logger.Error("redact.file.failed", "path", rel, "error", ferr)
			return nil
		}
		if isText {
			st.TextFiles++
		} else {
			st.CSVFiles++
		}
		r.logger.Debug("redact.file.ok", "path", rel)
		return nil
	})
	if err != nil {
		return st, err
	}

	if r.Masker != nil {
		if err := r.Masker.SaveMapping(filepath.Join(out, MappingFile)); err != nil {
			return st, common.WrapError(err, "save pii mapping")
		}
	}
	r.logger.Info("redact.done", "text_files", st.TextFiles, "csv_files", st.CSVFiles, "failed", st.Failed)
	return st, nil
}

func (r *Redactor) redactFile(src, dst string, text bool) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	content := string(b)
	switch {
	case text:
		content = r.Redact(content)
	case r.Masker != nil:
		content = r.Masker.Mask(content)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, []byte(content), 0o644)
}
