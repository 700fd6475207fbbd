package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures StartWatcher. AllowedExts holds lower-case
// extensions without the dot; nil means PDFs only.
type WatchConfig struct {
	Roots       []string
	AllowedExts map[string]struct{}
	InitialScan bool // emit files already present under Roots first
	Debounce    time.Duration
	Logger      *slog.Logger
}

type dirWatcher struct {
	fsw    *fsnotify.Watcher
	exts   map[string]struct{}
	delay  time.Duration
	out    chan string
	errs   chan error
	logger *slog.Logger
}

// StartWatcher watches Roots recursively and emits the path of every
// allowed file that is created, written or renamed into place. Bursts on
// the same paths are coalesced for Debounce. Both channels are closed once
// ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("watcher: no roots provided")
	}
	exts := cfg.AllowedExts
	if exts == nil {
		exts = map[string]struct{}{"pdf": {}}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	dw := &dirWatcher{
		fsw:    fsw,
		exts:   exts,
		delay:  cfg.Debounce,
		out:    make(chan string, 256),
		errs:   make(chan error, 1),
		logger: logger,
	}

	var existing []string
	for _, root := range cfg.Roots {
		found, err := dw.addTree(root)
		if err != nil {
			_ = fsw.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			existing = append(existing, found...)
		}
	}
	logger.Info("watcher.started", "roots", cfg.Roots, "existing", len(existing), "debounce", cfg.Debounce)

	go dw.loop(ctx, existing)
	return dw.out, dw.errs, nil
}

// addTree registers root and every non-hidden directory below it and
// returns the allowed files it saw on the way.
func (dw *dirWatcher) addTree(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && path != root && IsHidden(path):
			return filepath.SkipDir
		case d.IsDir():
			return dw.fsw.Add(path)
		case dw.wanted(path):
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		dw.logger.Error("watcher.add_failed", "root", root, "error", err)
	}
	return files, err
}

func (dw *dirWatcher) wanted(path string) bool {
	if IsHidden(path) {
		return false
	}
	_, ok := dw.exts[strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")]
	return ok
}

func (dw *dirWatcher) loop(ctx context.Context, existing []string) {
	defer func() {
		close(dw.out)
		close(dw.errs)
		if err := dw.fsw.Close(); err != nil {
			dw.logger.Warn("watcher.close_failed", "error", err)
		}
	}()

	for _, p := range existing {
		if !dw.emit(ctx, p) {
			return
		}
	}

	pending := map[string]struct{}{}
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-dw.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				dw.followDir(ev.Name)
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if !dw.wanted(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if dw.delay <= 0 {
				if !dw.flush(ctx, pending) {
					return
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(dw.delay)
			} else {
				timer.Reset(dw.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if !dw.flush(ctx, pending) {
				return
			}

		case err, ok := <-dw.fsw.Errors:
			if !ok {
				return
			}
			dw.logger.Error("watcher.error", "error", err)
			select {
			case dw.errs <- err:
			default:
			}
		}
	}
}

// flush emits pending paths in lexical order and empties the set.
func (dw *dirWatcher) flush(ctx context.Context, pending map[string]struct{}) bool {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
		delete(pending, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		if !dw.emit(ctx, p) {
			return false
		}
	}
	return true
}

func (dw *dirWatcher) emit(ctx context.Context, path string) bool {
	select {
	case dw.out <- path:
		return true
	case <-ctx.Done():
		return false
	}
}

// followDir starts watching a directory created after startup.
func (dw *dirWatcher) followDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || IsHidden(path) {
		return
	}
	if err := dw.fsw.Add(path); err != nil {
		dw.logger.Warn("watcher.follow_failed", "path", path, "error", err)
	}
}
