// Package logger provides a color-aware slog handler for the kortex
// service. Every package that logs takes a *slog.Logger from its caller;
// nothing in this codebase reaches for a global logger except the
// slog.Default() fallback these constructors wrap.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewDefault returns a logger writing colorized text to stderr.
func NewDefault(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New returns a logger writing colorized text to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps the config.LogConfig.Level string to a slog.Level,
// defaulting to Info on an unrecognized value.
func ParseLevel(s string) slog.Level {
	switch s {
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
