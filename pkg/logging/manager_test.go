package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestLoggingManager(t *testing.T) {
	t.Run("Default level is INFO", func(t *testing.T) {
		manager := NewLoggingManager()
		if manager.LogLevel() != "INFO" {
			t.Errorf("Expected default log level to be INFO, got %s", manager.LogLevel())
		}
	})

	t.Run("GetLogger creates and caches loggers", func(t *testing.T) {
		manager := NewLoggingManager()
		logger1 := manager.GetLogger("test")
		logger2 := manager.GetLogger("test")

		if logger1 != logger2 {
			t.Error("Expected GetLogger to return cached logger")
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		manager := NewLoggingManager()
		manager.SetLogLevel("debug")
		if manager.LogLevel() != "DEBUG" {
			t.Errorf("Expected log level to be DEBUG, got %s", manager.LogLevel())
		}

		manager.SetLogLevel("invalid")
		if manager.LogLevel() != "INFO" {
			t.Errorf("Expected invalid log level to default to INFO, got %s", manager.LogLevel())
		}
	})

	t.Run("Level filters output", func(t *testing.T) {
		var buf bytes.Buffer
		manager := NewLoggingManagerWithWriter(&buf)
		manager.SetLogLevel("WARN")

		logger := manager.GetLogger("filter")
		logger.Info("hidden")
		logger.Warn("visible")

		if strings.Contains(buf.String(), "hidden") {
			t.Error("Expected INFO to be filtered when level is WARN")
		}
		if !strings.Contains(buf.String(), "visible") {
			t.Error("Expected WARN to pass when level is WARN")
		}
	})

	t.Run("SetGlobalContext", func(t *testing.T) {
		manager := NewLoggingManager()
		existing := manager.GetLogger("existing")
		manager.SetGlobalContext("service", "test-service")

		if manager.GetLogger("existing") == existing {
			t.Error("Expected existing loggers to be replaced with the new context")
		}
		if manager.GetLogger("fresh").context["service"] != "test-service" {
			t.Error("Expected global context to be applied to new loggers")
		}
	})

	t.Run("Stats track levels", func(t *testing.T) {
		manager := NewLoggingManagerWithWriter(&bytes.Buffer{})
		manager.LogToolInvocation("analyze-data", time.Millisecond, nil)
		manager.LogToolInvocation("analyze-data", time.Millisecond, fmt.Errorf("boom"))
		manager.LogError("tools", fmt.Errorf("boom"), "failed", nil)

		stats := manager.GetStats()
		if stats.TotalMessages != 3 {
			t.Errorf("Expected 3 messages, got %d", stats.TotalMessages)
		}
		if stats.ErrorCount != 1 {
			t.Errorf("Expected 1 error, got %d", stats.ErrorCount)
		}
		if stats.MessagesByLevel["WARN"] != 1 {
			t.Errorf("Expected 1 warning, got %d", stats.MessagesByLevel["WARN"])
		}
	})
}
