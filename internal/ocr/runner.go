package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

const stderrLogLimit = 8 << 10

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

// NewExecRunner runs commands with os/exec and logs each invocation.
func NewExecRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return execRunner{logger: logger}
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, name, args...)
	c.Stdout, c.Stderr = &stdout, &stderr

	began := time.Now()
	err := c.Run()
	attrs := []any{
		"cmd", name,
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(began).Milliseconds(),
	}
	switch {
	case err == nil:
		r.logger.Debug("exec ok", append(attrs, "stdout_bytes", stdout.Len(), "stderr_bytes", stderr.Len())...)
	case ctx.Err() != nil:
		r.logger.Warn("exec cancelled", append(attrs, "error", ctx.Err())...)
		err = ctx.Err()
	default:
		r.logger.Error("exec failed", append(attrs, "error", err, "stderr", truncate(stderr.String(), stderrLogLimit))...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// toolError names the failing tool and carries the head of its stderr. A
// binary missing from PATH wraps common.ErrUnsupportedInput.
func toolError(tool string, err error, stderr []byte) error {
	if errors.Is(err, exec.ErrNotFound) {
		return common.NewAppError("TOOL_MISSING", tool+" is not installed", fmt.Errorf("%w: %w", common.ErrUnsupportedInput, err))
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return fmt.Errorf("%s: %w: %s", tool, err, truncate(msg, 512))
	}
	return fmt.Errorf("%s: %w", tool, err)
}

// truncate cuts s to at most max bytes on a rune boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
