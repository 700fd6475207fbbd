package ocr

import (
	"context"
	"strconv"
	"strings"
)

func (e *Extractor) tesseractArgs(img string) []string {
	// tesseract <file> stdout -l <lang> [--psm n] [--oem n] [--tessdata-dir d]
	args := []string{img, "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseract(ctx context.Context, img string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(img)...)
	if err != nil {
		return "", toolError("tesseract", err, errb)
	}
	return string(out), nil
}

// meanConfidence runs tesseract in TSV mode and returns the mean word confidence in 0..1.
func (e *Extractor) meanConfidence(ctx context.Context, img string) (float32, error) {
	args := append(e.tesseractArgs(img), "tsv")
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, toolError("tesseract tsv", err, nil)
	}
	return parseTSVConfidence(string(out)), nil
}

func parseTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		// conf is column 11; column 12 is the word text
		conf := cols[10]
		if conf == "" || conf == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(conf, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
