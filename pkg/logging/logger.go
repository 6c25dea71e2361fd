package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mcp-insight-service/pkg/errors"
)

// LogContext represents contextual information for log entries
type LogContext map[string]interface{}

// StructuredLogger provides structured logging capabilities
type StructuredLogger struct {
	logger    *slog.Logger
	component string
	context   LogContext
}

// NewStructuredLogger creates a new structured logger writing JSON to stderr.
// Stdout carries the MCP protocol and must never receive log lines.
func NewStructuredLogger(component string) *StructuredLogger {
	return newStructuredLogger(component, os.Stderr, slog.LevelDebug)
}

func newStructuredLogger(component string, w io.Writer, level slog.Leveler) *StructuredLogger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano)),
				}
			case slog.LevelKey:
				return slog.Attr{Key: "level", Value: a.Value}
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: a.Value}
			}
			return a
		},
	}

	return &StructuredLogger{
		logger:    slog.New(slog.NewJSONHandler(w, opts)),
		component: component,
		context:   make(LogContext),
	}
}

// WithContext adds context to the logger (returns a new logger instance)
func (sl *StructuredLogger) WithContext(key string, value interface{}) *StructuredLogger {
	newLogger := &StructuredLogger{
		logger:    sl.logger,
		component: sl.component,
		context:   make(LogContext, len(sl.context)+1),
	}

	for k, v := range sl.context {
		newLogger.context[k] = v
	}

	newLogger.context[key] = value
	return newLogger
}

// WithFields adds several context entries at once
func (sl *StructuredLogger) WithFields(fields map[string]interface{}) *StructuredLogger {
	logger := sl
	for k, v := range fields {
		logger = logger.WithContext(k, v)
	}
	return logger
}

// WithError adds error information to the logger context
func (sl *StructuredLogger) WithError(err error) *StructuredLogger {
	if err == nil {
		return sl
	}

	newLogger := sl.WithContext("error", err.Error())

	if structuredErr, ok := err.(*errors.StructuredError); ok {
		newLogger = newLogger.
			WithContext("error_category", structuredErr.Category).
			WithContext("error_code", structuredErr.Code).
			WithContext("error_severity", structuredErr.Severity).
			WithContext("error_recoverable", structuredErr.IsRecoverable())

		for k, v := range structuredErr.Context {
			newLogger = newLogger.WithContext(fmt.Sprintf("error_ctx_%s", k), v)
		}
	}

	return newLogger
}

// buildLogAttributes creates slog attributes from context
func (sl *StructuredLogger) buildLogAttributes() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(sl.context)+1)
	attrs = append(attrs, slog.String("component", sl.component))

	for key, value := range sl.context {
		attrs = append(attrs, slog.Any(key, sanitizeValue(key, value)))
	}

	return attrs
}

// Debug logs a debug message
func (sl *StructuredLogger) Debug(message string) {
	sl.logger.LogAttrs(context.Background(), slog.LevelDebug, message, sl.buildLogAttributes()...)
}

// Info logs an info message
func (sl *StructuredLogger) Info(message string) {
	sl.logger.LogAttrs(context.Background(), slog.LevelInfo, message, sl.buildLogAttributes()...)
}

// Warn logs a warning message
func (sl *StructuredLogger) Warn(message string) {
	sl.logger.LogAttrs(context.Background(), slog.LevelWarn, message, sl.buildLogAttributes()...)
}

// Error logs an error message
func (sl *StructuredLogger) Error(message string) {
	sl.logger.LogAttrs(context.Background(), slog.LevelError, message, sl.buildLogAttributes()...)
}

// LogMCPMessage logs an MCP protocol message with timing information
func (sl *StructuredLogger) LogMCPMessage(method string, requestID interface{}, duration time.Duration, success bool) {
	logger := sl.WithContext("mcp_method", method).
		WithContext("request_id", requestID).
		WithContext("duration_ms", duration.Milliseconds()).
		WithContext("success", success)

	if success {
		logger.Info("MCP message processed successfully")
	} else {
		logger.Warn("MCP message processing failed")
	}
}

// LogStartup logs application startup events
func (sl *StructuredLogger) LogStartup(event string, details map[string]interface{}) {
	sl.WithContext("startup_event", event).WithFields(details).Info("Application startup event")
}

// LogShutdown logs application shutdown events
func (sl *StructuredLogger) LogShutdown(event string, details map[string]interface{}) {
	sl.WithContext("shutdown_event", event).WithFields(details).Info("Application shutdown event")
}

// LogArtifact records a file written to the output directory
func (sl *StructuredLogger) LogArtifact(kind, path string, size int) {
	sl.WithContext("artifact_kind", kind).
		WithContext("artifact_path", path).
		WithContext("artifact_bytes", size).
		Debug("Artifact written")
}

// LogExternalCall logs a call to the generative API or the SMTP relay
func (sl *StructuredLogger) LogExternalCall(service, operation string, duration time.Duration, err error) {
	logger := sl.WithContext("external_service", service).
		WithContext("operation", operation).
		WithContext("duration_ms", duration.Milliseconds())

	if err != nil {
		logger.WithError(err).Warn("External call failed")
		return
	}
	logger.Debug("External call completed")
}

// LogSecurityEvent logs security-related events (without sensitive data)
func (sl *StructuredLogger) LogSecurityEvent(eventType string, details map[string]interface{}) {
	sl.WithContext("security_event", eventType).
		WithFields(details).
		Warn("Security event detected")
}

var sensitiveKeys = []string{
	"password", "pass", "token", "secret", "api_key", "apikey", "auth", "credential",
}

// sanitizeValue masks values stored under sensitive keys or shaped like tokens
func sanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(keyLower, sensitiveKey) {
			return "[REDACTED]"
		}
	}

	if str, ok := value.(string); ok && len(str) > 32 && isTokenLike(str) {
		return fmt.Sprintf("[MASKED:%d_chars]", len(str))
	}
	return value
}

// isTokenLike checks if a string contains only characters found in API keys
func isTokenLike(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
