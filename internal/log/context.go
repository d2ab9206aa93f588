package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger stored by WithLogger, falling back to the
// default slog logger.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// WithRun returns a context whose logger carries the component and run id of
// one scheduled job execution.
func WithRun(ctx context.Context, component, runID string) context.Context {
	logger := FromContext(ctx).WithComponent(component).With(FieldRunID, runID)
	return WithLogger(ctx, logger)
}
