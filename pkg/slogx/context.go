package slogx

import (
	"context"
	"log/slog"
)

// loggerKey is the private context key for the per-request logger.
type loggerKey struct{}

// WithContext stores logger in ctx so handlers further down the chain can
// pick it up with FromContext.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by WithContext. Outside a request
// scope it falls back to slog.Default, so callers never need a nil check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
