package common

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	runIDKey
	documentKey
)

func stringValue(ctx context.Context, k ctxKey) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// WithRequestID sets the id sent as X-Request-ID and logged as req_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// WithRunID tags ctx with the grid or pipeline run it belongs to.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func RunIDFromContext(ctx context.Context) string { return stringValue(ctx, runIDKey) }

func WithDocument(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, documentKey, name)
}

func DocumentFromContext(ctx context.Context) string { return stringValue(ctx, documentKey) }

// LogAttrs returns the run_id and document set on ctx as slog key/value
// pairs, skipping the ones that are unset.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, "run_id", id)
	}
	if doc := DocumentFromContext(ctx); doc != "" {
		attrs = append(attrs, "document", doc)
	}
	return attrs
}
