package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var rePageFile = regexp.MustCompile(`-(\d+)\.png$`)

// PDFToText runs pdftotext in layout mode and splits the output on form
// feeds, one entry per page. Layout whitespace is preserved.
func (e *Extractor) PDFToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, toolError("pdftotext", err, errb)
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext terminates the last page with a form feed too
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}

// OCRPages rasterizes the PDF and runs tesseract on every image. When pages
// is empty the whole document is rendered (up to MaxPages); otherwise only
// the listed 1-based pages are. Pages that fail are reported as warnings.
func (e *Extractor) OCRPages(ctx context.Context, path string, pages []int) ([]PageText, []string, error) {
	tmpDir, err := os.MkdirTemp("", "dx-pp-*")
	if err != nil {
		return nil, nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("ocr.tmpdir.remove_failed", "dir", dir, "error", err)
		}
	}(tmpDir)

	var images map[int]string
	var warns []string
	if len(pages) == 0 {
		images, err = e.rasterize(ctx, path, tmpDir, 0)
		if err != nil {
			return nil, nil, err
		}
	} else {
		images = make(map[int]string, len(pages))
		for _, p := range pages {
			imgs, err := e.rasterize(ctx, path, tmpDir, p)
			if err != nil {
				warns = append(warns, fmt.Sprintf("page %d: %v", p, err))
				continue
			}
			for n, img := range imgs {
				images[n] = img
			}
		}
	}

	nums := make([]int, 0, len(images))
	for n := range images {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	if e.cfg.MaxPages > 0 && len(nums) > e.cfg.MaxPages {
		nums = nums[:e.cfg.MaxPages]
	}
	if len(nums) == 0 {
		return nil, append(warns, "pdftoppm produced no images"), fmt.Errorf("no pages rendered")
	}

	out := make([]PageText, 0, len(nums))
	for _, n := range nums {
		txt, err := e.tesseract(ctx, images[n])
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", n, err))
			continue
		}
		pt := PageText{Number: n, Text: Normalize(txt)}
		if e.cfg.TSVConfidence {
			if c, err := e.meanConfidence(ctx, images[n]); err == nil {
				pt.Confidence = c
			} else {
				warns = append(warns, err.Error())
			}
		}
		out = append(out, pt)
	}
	e.logger.Debug("ocr.pages.done", "path", path, "pages", len(out), "warnings", len(warns))
	return out, warns, nil
}

// rasterize renders page (or every page when page is 0) into dir and maps
// page numbers to image paths.
func (e *Extractor) rasterize(ctx context.Context, path, dir string, page int) (map[int]string, error) {
	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if page > 0 {
		prefix = filepath.Join(dir, fmt.Sprintf("p%d", page))
		args = append(args, "-f", strconv.Itoa(page), "-l", strconv.Itoa(page))
	}
	// pdftoppm -r <dpi> -png [-f n -l n] <in.pdf> <prefix>
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, toolError("pdftoppm", err, errb)
	}

	// prefix-1.png, prefix-01.png ... depending on the page count
	matches, _ := filepath.Glob(prefix + "-*.png")
	out := make(map[int]string, len(matches))
	for _, m := range matches {
		sm := rePageFile.FindStringSubmatch(m)
		if sm == nil {
			continue
		}
		n, _ := strconv.Atoi(sm[1])
		out[n] = m
	}
	return out, nil
}
