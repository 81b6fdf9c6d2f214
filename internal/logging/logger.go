package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger creates a structured logger appropriate for the environment.
// Production uses JSON format, development uses colorized text.
func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(env, os.Stderr)
}

// NewLoggerTo is NewLogger writing to w.
func NewLoggerTo(env string, w io.Writer) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
	}))
}

// Discard returns a logger that drops every record. Used by tests and
// by library callers that pass no logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
