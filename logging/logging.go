// Package logging builds the structured loggers used across the service.
//
// Everything is slog underneath; this package only standardizes handler
// construction so every component logs with the same level filter, format
// and service attribute.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config configures a logger. The zero value produces an Info-level text
// logger on stderr.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn" or "error".
	// Unknown or empty values mean info.
	Level string

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches the output format from human-readable text to JSON.
	JSON bool

	// Output overrides the destination. Nil means stderr.
	Output io.Writer
}

// New builds a *slog.Logger from the configuration.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
