package gridsearch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Document is a preprocessed text input.
type Document struct {
	Name     string
	Path     string
	Content  string
	RawChars int
}

// LoadDocuments reads every *.txt file under dir, preprocessing and
// truncating each one to maxChars. Unreadable files are logged and skipped.
func LoadDocuments(dir string, maxChars int, logger *slog.Logger) ([]Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("documents dir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("documents dir %q is not a directory", dir)
	}

	var docs []Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.Warn("grid.documents.walk_error", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("grid.documents.read_error", "path", path, "error", err)
			return nil
		}
		name, err := filepath.Rel(dir, path)
		if err != nil {
			name = filepath.Base(path)
		}
		content := Truncate(Preprocess(string(b)), maxChars)
		docs = append(docs, Document{
			Name:     filepath.ToSlash(name),
			Path:     path,
			Content:  content,
			RawChars: len(b),
		})
		logger.Debug("grid.documents.loaded", "document", name, "raw_chars", len(b), "chars", len(content))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
