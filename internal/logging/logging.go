// Package logging configures the process-wide structured logger and carries
// it through request contexts.
//
// Two environment variables control output:
//
//	LOG_LEVEL  = debug | info | warn | error  (default: info)
//	LOG_FORMAT = json | text                  (default: json)
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type loggerKey struct{}

// New builds a [*slog.Logger] writing to stderr, honouring LOG_LEVEL and
// LOG_FORMAT. JSON output is the default; text is for local development.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv()}

	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// WithLogger attaches logger to ctx so downstream code can pick it up with
// [FromContext].
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or [slog.Default] when
// none is attached. Callers never need a nil check.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
