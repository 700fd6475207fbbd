package clean

import (
	"log/slog"
	"strings"

	"github.com/pranayab18/Data-Extraction/internal/extract"
)

var disclaimerCellWords = []string{
	"confidential",
	"disclaimer",
	"unauthorized",
	"intended recipient",
	"caution",
}

// TableCleaner blanks disclaimer and image cells and drops rows and
// columns that end up empty.
type TableCleaner struct {
	logger *slog.Logger
}

func NewTableCleaner(logger *slog.Logger) *TableCleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableCleaner{logger: logger}
}

// Clean returns the cleaned table, or false when nothing remains.
func (c *TableCleaner) Clean(t extract.Table) (extract.Table, bool) {
	if len(t.Rows) == 0 {
		return t, false
	}
	_, width := t.Shape()

	rows := make([][]string, 0, len(t.Rows))
	used := make([]bool, width)
	for _, r := range t.Rows {
		row := make([]string, width)
		empty := true
		for j, cell := range r {
			row[j] = cleanCell(cell)
			if row[j] != "" {
				empty = false
				used[j] = true
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		c.logger.Debug("clean.table.empty", "page", t.Page, "index", t.Index)
		return t, false
	}

	keep := make([]int, 0, width)
	for j, u := range used {
		if u {
			keep = append(keep, j)
		}
	}
	if len(keep) < width {
		for i, r := range rows {
			nr := make([]string, len(keep))
			for k, j := range keep {
				nr[k] = r[j]
			}
			rows[i] = nr
		}
	}

	out := t
	out.Rows = rows
	return out, true
}

// CleanAll cleans every table, dropping the ones that become empty.
func (c *TableCleaner) CleanAll(tables []extract.Table) []extract.Table {
	out := make([]extract.Table, 0, len(tables))
	for _, t := range tables {
		if ct, ok := c.Clean(t); ok {
			out = append(out, ct)
		}
	}
	return out
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	low := strings.ToLower(v)
	for _, w := range disclaimerCellWords {
		if strings.Contains(low, w) {
			return ""
		}
	}
	if strings.HasPrefix(low, "[image:") || strings.HasPrefix(low, "[cid:") || isGmailNoise(v) {
		return ""
	}
	return v
}
