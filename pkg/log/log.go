package log

import (
	"context"

	"go.uber.org/zap"
)

type logCtxKey int

const defaultLogCtxKey logCtxKey = 0

// Logger is a zap logger with a couple of helpers used throughout the module.
type Logger struct {
	*zap.Logger
}

// IntoContext stores the logger in the context.
func IntoContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, defaultLogCtxKey, logger)
}

// FromContext returns the logger stored in the context, falling back to the global zap logger.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(defaultLogCtxKey).(*zap.Logger); ok && logger != nil {
			return &Logger{logger}
		}
	}
	return &Logger{zap.L()}
}

// WithError returns a logger annotated with the given error.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{l.Logger.With(zap.Error(err))}
}

// Named returns a child logger with the given name segment.
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

// New builds the process logger for the given level ("debug", "info", ...).
// Development mode switches to the console encoder.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}
