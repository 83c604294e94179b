// Package logger carries a *slog.Logger through context.Context so request
// handlers and library code share one configured logger.
package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// AddToContext returns a child context carrying log.
func AddToContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or slog.Default() when none
// was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}
