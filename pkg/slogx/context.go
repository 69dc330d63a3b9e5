package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext stores a request-scoped logger on the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, falling back to the
// process default when none has been attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("req_id", reqID))
}
