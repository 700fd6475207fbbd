package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Chain tries each extractor in order and keeps the first that returns
// any text. When none do, the last empty result is returned.
type Chain struct {
	Extractors []TextExtractor
	Logger     *slog.Logger
}

func NewChain(logger *slog.Logger, extractors ...TextExtractor) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{Extractors: extractors, Logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.Extractors))
	for i, e := range c.Extractors {
		names[i] = e.Name()
	}
	return strings.Join(names, ",")
}

func (c *Chain) ExtractPages(ctx context.Context, path string) ([]string, error) {
	pages, _, err := c.ExtractPagesMethod(ctx, path)
	return pages, err
}

// ExtractPagesMethod also reports which extractor produced the pages.
func (c *Chain) ExtractPagesMethod(ctx context.Context, path string) ([]string, string, error) {
	var (
		errs   []error
		empty  []string
		method string
	)
	for _, e := range c.Extractors {
		pages, err := e.ExtractPages(ctx, path)
		if err != nil {
			c.Logger.Warn("extract.text.strategy_failed", "extractor", e.Name(), "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			continue
		}
		if nonSpace(strings.Join(pages, "")) > 0 {
			return pages, e.Name(), nil
		}
		empty, method = pages, e.Name()
	}
	if method != "" {
		return empty, method, nil
	}
	return nil, "", errors.Join(errs...)
}
