package obs

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// WithRequestID stores the request id used to correlate timing lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time logs how long an operation took. Failures are logged at WARN.
func Time(ctx context.Context, name string) func(errp *error) {
	return TimeExpected(ctx, name, nil)
}

// TimeExpected is Time with a classifier: errors for which expected returns
// true are routine outcomes and are logged at INFO.
func TimeExpected(ctx context.Context, name string, expected func(error) bool) func(errp *error) {
	start := time.Now()

	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		attrs := []slog.Attr{
			slog.String("req_id", reqID),
			slog.String("op", name),
			slog.Int64("dur_ms", dur.Milliseconds()),
		}
		if errp != nil && *errp != nil {
			attrs = append(attrs, slog.Any("error", *errp))
			level := slog.LevelWarn
			if expected != nil && expected(*errp) {
				level = slog.LevelInfo
			}
			slog.Default().LogAttrs(ctx, level, "op failed", attrs...)
			return
		}
		slog.Default().LogAttrs(ctx, slog.LevelDebug, "op done", attrs...)
	}
}
