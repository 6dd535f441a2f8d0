// Package logging sets up the process-wide structured logger. The live
// view owns the terminal, so logs go to a file as JSON lines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// Logger is a configured logger and the file behind it.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a JSON logger. With a path, output is appended to that file
// (parent directories are created) and, if console is set, mirrored to
// stderr. Without a path, output goes to stderr when console is set and is
// discarded otherwise. If the file cannot be opened the logger falls back
// to stderr.
func New(path, level string, console bool) *Logger {
	l := &Logger{}

	var w io.Writer = io.Discard
	if console {
		w = os.Stderr
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				l.file = f
				if console {
					w = io.MultiWriter(os.Stderr, f)
				} else {
					w = f
				}
			} else {
				w = os.Stderr
			}
		} else {
			w = os.Stderr
		}
	}

	l.Logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	return l
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
