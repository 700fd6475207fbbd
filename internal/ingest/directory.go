package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScanInputs walks root, skips hidden entries if requested, and returns
// every PDF, Excel and zip file in lexical order. Unreadable entries are
// reported in the results with Err set; the walk continues.
func ScanInputs(ctx context.Context, root string, skipHidden bool) ([]Input, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Input
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, Input{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		format := Classify(path)
		if format == "" {
			return nil
		}
		stats.Matched++

		in := Input{Path: path, Format: format}
		if info, err := d.Info(); err == nil {
			in.Size = info.Size()
		}
		results = append(results, in)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, stats, nil
}
