// Package logging provides structured logging for the daemon.
//
// This package uses Go's standard library log/slog for structured,
// leveled logging, extended with NOTE/CRITICAL/FATAL severities in
// addition to slog's own DEBUG/INFO/WARN/ERROR. It supports both
// text and JSON output formats and
// integrates with context.Context for request-scoped logging.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Extra severities: NOTE sits between slog.LevelInfo and
// slog.LevelWarn, CRITICAL and FATAL above slog.LevelError, so that
// standard handlers still sort and filter these correctly.
const (
	LevelNote     = slog.LevelInfo + 2
	LevelCritical = slog.LevelError + 4
	LevelFatal    = slog.LevelError + 8
)

// levelNames maps the extra levels to their display names.
var levelNames = map[slog.Level]string{
	LevelNote:     "NOTE",
	LevelCritical: "CRITICAL",
	LevelFatal:    "FATAL",
}

func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	if name, ok := levelNames[level]; ok {
		a.Value = slog.StringValue(name)
	}
	return a
}

// ctxKey is the context key for the logger.
type ctxKey struct{}

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
	// loggerMu protects defaultLogger.
	loggerMu sync.RWMutex
)

func init() {
	defaultLogger = NewLogger(Config{Level: slog.LevelInfo, Output: os.Stderr})
}

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum log level (debug, note, info, warn, error, critical, fatal).
	Level slog.Level
	// Format is the output format ("text" or "json").
	Format string
	// Output is the log output destination.
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// NewLogger creates a new structured logger with the given configuration.
func NewLogger(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

// SetDefault sets the default global logger.
func SetDefault(logger *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// Default returns the default global logger.
func Default() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// WithProgram returns a logger with program-name context.
func WithProgram(logger *slog.Logger, name string) *slog.Logger {
	return logger.With(slog.String("program", name))
}

// WithPID returns a logger with process ID context.
func WithPID(logger *slog.Logger, pid int) *slog.Logger {
	return logger.With(slog.Int("pid", pid))
}

// ContextWithLogger returns a new context with the logger attached.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from context.
// If no logger is found, returns the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// ParseLevel parses a log level string and returns the corresponding slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "note":
		return LevelNote
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	case "fatal":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs an info message using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Note logs a note-level message using the default logger.
func Note(msg string, args ...any) { Default().Log(context.Background(), LevelNote, msg, args...) }

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs an error message using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Critical logs a critical-level message using the default logger.
func Critical(msg string, args ...any) {
	Default().Log(context.Background(), LevelCritical, msg, args...)
}

// Fatal logs a fatal-level message using the default logger and
// always additionally writes a copy to stderr, even if the configured
// sink is a log file.
func Fatal(msg string, args ...any) {
	Default().Log(context.Background(), LevelFatal, msg, args...)
	fmt.Fprintf(os.Stderr, "FATAL: %s %v\n", msg, args)
}
