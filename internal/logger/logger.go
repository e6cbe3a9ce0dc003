// Package logger provides structured logging for the kiosk orchestration
// core, wrapping log/slog with conventions for request-scoped attributes
// and redaction of upstream API secrets.
package logger

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultLogger is the process-wide structured logger. It is safe for
// concurrent use.
var DefaultLogger *slog.Logger

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		switch strings.ToLower(envLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	DefaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetLevel replaces the global logger with one at the given level.
func SetLevel(level slog.Level) {
	DefaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) { DefaultLogger.Info(msg, args...) }

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) { DefaultLogger.Debug(msg, args...) }

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) { DefaultLogger.Warn(msg, args...) }

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) { DefaultLogger.Error(msg, args...) }

// secretPattern matches common API-key-shaped tokens so they never reach a
// log line, even if a caller accidentally logs a raw upstream request body.
var secretPattern = regexp.MustCompile(`(?i)(api[_-]?key|authorization|bearer)["':= ]+[A-Za-z0-9._-]{12,}`)

// Redact replaces any API-key-shaped substring in s with a masked marker.
// Use this before logging raw upstream request/response bodies.
func Redact(s string) string {
	return secretPattern.ReplaceAllString(s, "$1=***redacted***")
}

// UpstreamCall logs an outbound call to an external collaborator (LLM, TTS)
// with consistent fields for observability.
func UpstreamCall(component, target string, durationMS int64, ok bool, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs, "component", component, "target", target, "duration_ms", durationMS, "ok", ok)
	allAttrs = append(allAttrs, attrs...)
	if ok {
		DefaultLogger.Info("upstream_call", allAttrs...)
	} else {
		DefaultLogger.Warn("upstream_call", allAttrs...)
	}
}
