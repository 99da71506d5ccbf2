package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates a structured logger on stdout. format "pretty" selects
// the human-readable handler, colored when stdout is a terminal; anything
// else yields JSON.
func NewLogger(level, format string) *slog.Logger {
	log := NewLoggerTo(os.Stdout, level, format)
	slog.SetDefault(log)
	return log
}

// NewLoggerTo is NewLogger on w, without touching the default logger.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return newLogger(w, level, format, tty)
}

func newLogger(w io.Writer, level, format string, tty bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(level),
		AddSource: true,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty", "text":
		h = newPrettyHandler(w, opts, tty && os.Getenv("NO_COLOR") == "")
	default:
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
