package ingest

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

// MaxZipEntryBytes caps a single unpacked entry.
const MaxZipEntryBytes = 512 << 20

// TimestampLayout names per-run output directories.
const TimestampLayout = "20060102_150405"

var now = time.Now

// ZipResult lists what ExtractZip unpacked.
type ZipResult struct {
	Dir   string
	Files []string
}

// ExtractZip unpacks path into dest/<base>_extracted_<timestamp>. Entries
// that would land outside that directory are rejected.
func ExtractZip(path, dest string, logger *slog.Logger) (ZipResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Join(dest, fmt.Sprintf("%s_extracted_%s", SafeFilename(base), now().Format(TimestampLayout)))

	r, err := zip.OpenReader(path)
	if errors.Is(err, zip.ErrInsecurePath) {
		if r != nil {
			_ = r.Close()
		}
		return ZipResult{}, common.NewAppError("ZIP_TRAVERSAL", "zip contains non-local paths", errors.Join(common.ErrUnsupportedInput, err))
	}
	if err != nil {
		return ZipResult{}, common.NewAppError("ZIP_OPEN", "cannot open zip", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ZipResult{}, common.WrapError(err, "create extract dir")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return ZipResult{}, err
	}

	res := ZipResult{Dir: dir}
	for _, f := range r.File {
		target, err := safeJoin(root, f.Name)
		if err != nil {
			logger.Warn("ingest.zip.rejected", "zip", path, "entry", f.Name, "error", err)
			return res, common.NewAppError("ZIP_TRAVERSAL", "zip entry escapes extract dir: "+f.Name, common.ErrUnsupportedInput)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return res, err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return res, common.WrapError(err, "unpack "+f.Name)
		}
		res.Files = append(res.Files, target)
	}

	logger.Info("ingest.zip.ok", "zip", path, "dir", dir, "files", len(res.Files))
	return res, nil
}

func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", fmt.Errorf("absolute path")
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal")
	}
	return target, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, MaxZipEntryBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n > MaxZipEntryBytes {
		_ = os.Remove(target)
		return fmt.Errorf("entry larger than %d bytes", MaxZipEntryBytes)
	}
	return nil
}

// SafeFilename replaces anything outside letters, digits and " ._-()" with '_'.
func SafeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(" ._-()", r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
