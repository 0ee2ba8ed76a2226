package core

import (
	"context"

	"go.uber.org/zap"
)

// Context keys for comparison options
type contextKey string

const (
	loggerKey         contextKey = "logger"
	suppressHeaderKey contextKey = "suppressHeader"
)

// WithLogger attaches a logger to the context for the comparison pipeline.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// loggerFromContext returns the context logger, falling back to the global one.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.L()
}

// WithSuppressHeader sets whether the run header should be suppressed in the context
func WithSuppressHeader(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressHeaderKey, true)
}

// shouldSuppressHeader returns whether headers should be suppressed from context
func shouldSuppressHeader(ctx context.Context) bool {
	val := ctx.Value(suppressHeaderKey)
	if val == nil {
		return false // default: show headers
	}
	suppress, ok := val.(bool)
	return ok && suppress
}
