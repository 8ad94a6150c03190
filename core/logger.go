package core

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the field names used across world and query code
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler
// A nil handler falls back to a text handler on stderr at Info level
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

// NewTextLogger creates a human-readable Logger writing to w
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NewJSONLogger creates a JSON Logger writing to w
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger discards everything
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000),
		})),
	}
}

// WithWorld tags records with a world id
func (l *Logger) WithWorld(id uint64) *Logger {
	return &Logger{Logger: l.Logger.With("world", id)}
}

// WithQuery tags records with a query label
func (l *Logger) WithQuery(name string) *Logger {
	return &Logger{Logger: l.Logger.With("query", name)}
}
