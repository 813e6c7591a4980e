// Package logctx carries the request or event scoped logger through a context,
// so use cases log with the ids the edge already attached.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields extends the context logger, or fallback when none is set, and stores the result.
func WithFields(ctx context.Context, fallback observability.Logger, fields ...observability.Field) context.Context {
	base := FromOr(ctx, fallback)
	if base == nil || len(fields) == 0 {
		return With(ctx, base)
	}
	return With(ctx, base.With(fields...))
}

// From returns nil when no logger was stored.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}
