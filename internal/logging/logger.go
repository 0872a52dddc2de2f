// Package logging provides structured logging for stagehand. It wraps
// log/slog to emit JSON-formatted entries with plan and task attributes
// attached through child loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log levels supported by the logger.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the log file created inside the state directory.
const LogFileName = "stagehand.log"

// Logger provides structured logging with attribute propagation.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	closer io.Closer
	attrs  []slog.Attr
}

// New creates a Logger that writes JSON entries to a size-rotated file
// inside stateDir. If stateDir is empty, entries go to stderr and Close
// is a no-op.
func New(stateDir, level string) (*Logger, error) {
	return NewWithRotation(stateDir, level, DefaultRotationConfig())
}

// NewWithRotation is New with explicit rotation settings.
func NewWithRotation(stateDir, level string, rc RotationConfig) (*Logger, error) {
	var writer io.Writer
	var closer io.Closer

	if stateDir != "" {
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
		rw, err := NewRotatingWriter(filepath.Join(stateDir, LogFileName), rc)
		if err != nil {
			return nil, err
		}
		writer = rw
		closer = rw
	} else {
		writer = os.Stderr
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{
		logger: slog.New(handler),
		closer: closer,
	}, nil
}

// NopLogger returns a Logger that discards all output. Useful in tests.
func NopLogger() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithPlan returns a child logger carrying the plan ID on every entry.
func (l *Logger) WithPlan(planID string) *Logger {
	return l.withAttr(slog.String("plan_id", planID))
}

// WithTask returns a child logger carrying the task ID on every entry.
func (l *Logger) WithTask(taskID string) *Logger {
	return l.withAttr(slog.String("task_id", taskID))
}

// WithPhase returns a child logger carrying the phase on every entry.
func (l *Logger) WithPhase(phase int) *Logger {
	return l.withAttr(slog.Int("phase", phase))
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	attrs := make([]slog.Attr, len(l.attrs)+1)
	copy(attrs, l.attrs)
	attrs[len(l.attrs)] = attr

	return &Logger{
		logger: l.logger,
		closer: l.closer,
		attrs:  attrs,
	}
}

// Debug logs at DEBUG level with alternating key-value arguments.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at INFO level with alternating key-value arguments.
func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at WARN level with alternating key-value arguments.
func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at ERROR level with alternating key-value arguments.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	all := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		all = append(all, attr.Key, attr.Value.Any())
	}
	all = append(all, args...)
	l.logger.Log(context.Background(), level, msg, all...)
}

// Close flushes and closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ValidLevels returns the accepted log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
