package psmgo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with psmgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithFeatures adds the resolved feature columns to the logger.
func (l *Logger) WithFeatures(features []string) *Logger {
	return &Logger{
		Logger: l.Logger.With("features", features),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// WithRequest adds request-scoped fields, as used by the HTTP service.
func (l *Logger) WithRequest(requestID, handler string) *Logger {
	return &Logger{
		Logger: l.Logger.With("request_id", requestID, "handler", handler),
	}
}

// LogResolve logs schema validation and feature resolution.
func (l *Logger) LogResolve(ctx context.Context, requested, features []string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "feature resolution failed",
			"requested", requested,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "features resolved",
			"requested", requested,
			"features", features,
		)
	}
}

// LogFit logs a propensity model fit.
func (l *Logger) LogFit(ctx context.Context, experimentRows, controlRows int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "propensity fit failed",
			"experiment_rows", experimentRows,
			"control_rows", controlRows,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "propensity fit completed",
			"experiment_rows", experimentRows,
			"control_rows", controlRows,
			"duration", duration,
		)
	}
}

// LogMatch logs the matching stage.
func (l *Logger) LogMatch(ctx context.Context, matches, returned int, distinct uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "matching failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "matching completed",
			"matches", matches,
			"returned", returned,
			"distinct_controls", distinct,
		)
	}
}
