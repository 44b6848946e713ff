// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and propagates the
// frame generation being drawn through context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const generationKey ctxKey = "generation"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	return InitWriter(os.Stdout, service, level)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithGeneration stores the frame generation in the context.
func WithGeneration(ctx context.Context, gen uint64) context.Context {
	return context.WithValue(ctx, generationKey, gen)
}

// Generation extracts the frame generation from context. Returns 0 if not set.
func Generation(ctx context.Context) uint64 {
	if v, ok := ctx.Value(generationKey).(uint64); ok {
		return v
	}
	return 0
}

// LogAttrs returns slog attributes including the frame generation from context.
// Usage: slog.Info("msg", logger.LogAttrs(ctx)...)
func LogAttrs(ctx context.Context) []any {
	gen := Generation(ctx)
	if gen == 0 {
		return nil
	}
	return []any{slog.Uint64("generation", gen)}
}
