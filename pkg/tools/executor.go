// Package tools validates and executes the MCP tools: argument parsing,
// schema conformance, timeouts and sanitised logging.
package tools

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
)

// DefaultToolTimeout bounds a tool call when no timeout is configured
const DefaultToolTimeout = 120 * time.Second

// maxLogLength is the longest argument string logged verbatim
const maxLogLength = 100

// payloadFields carry base64 content and are only ever logged by size
var payloadFields = map[string]bool{
	"fileData": true,
	"data":     true,
}

// ToolExecutor handles tool execution with validation, timeout, and logging
type ToolExecutor struct {
	maxExecutionTime time.Duration
	logger           *logging.StructuredLogger
	timeoutCallback  func()
}

// NewToolExecutor creates an executor. A non-positive timeout selects
// DefaultToolTimeout.
func NewToolExecutor(timeout time.Duration, logger *logging.StructuredLogger) *ToolExecutor {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &ToolExecutor{
		maxExecutionTime: timeout,
		logger:           logger,
	}
}

// SetTimeoutCallback sets a callback function to be called when a timeout occurs
func (te *ToolExecutor) SetTimeoutCallback(callback func()) {
	te.timeoutCallback = callback
}

// Execute validates arguments and executes a tool with timeout protection
func (te *ToolExecutor) Execute(ctx context.Context, tool Tool, arguments map[string]interface{}) (string, error) {
	args, err := te.ValidateArguments(tool, arguments)
	if err != nil {
		te.logger.WithContext("tool", tool.Name()).
			WithError(err).
			Warn("Tool argument validation failed")
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, te.maxExecutionTime)
	defer cancel()

	logger := te.logger.WithContext("tool", tool.Name())
	for k, v := range SanitizeArguments(arguments) {
		logger = logger.WithContext(fmt.Sprintf("arg_%s", k), v)
	}
	logger.Info("Executing tool")

	result, err := te.run(ctx, tool, args)
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			te.logger.WithContext("tool", tool.Name()).
				WithContext("timeout", te.maxExecutionTime.String()).
				Error("Tool execution timeout")

			if te.timeoutCallback != nil {
				te.timeoutCallback()
			}

			return "", errors.NewSystemError(
				errors.ErrCodeToolTimeout,
				fmt.Sprintf("tool execution timeout after %s", te.maxExecutionTime),
				err,
			).WithContext("tool_name", tool.Name())
		}

		var structured *errors.StructuredError
		if !stderrors.As(err, &structured) {
			err = errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "tool execution failed", err).
				WithContext("tool_name", tool.Name())
		}

		te.logger.WithContext("tool", tool.Name()).
			WithError(err).
			Error("Tool execution failed")
		return "", err
	}

	te.logger.WithContext("tool", tool.Name()).
		Info("Tool execution completed")

	return result, nil
}

// ValidateArguments parses arguments into the tool's typed record and then
// checks them against the advertised schema. Typed parsing runs first so
// callers get the most specific message for a field.
func (te *ToolExecutor) ValidateArguments(tool Tool, arguments map[string]interface{}) (interface{}, error) {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	args, violations := tool.Parse(arguments)
	if len(violations) > 0 {
		return nil, errors.NewArgumentsError(tool.Name(), violations)
	}

	if violations := tool.Schema().Validate(arguments); len(violations) > 0 {
		se := errors.NewArgumentsError(tool.Name(), violations)
		se.Code = errors.ErrCodeSchemaMismatch
		return nil, se
	}

	return args, nil
}

// run executes the tool, turning a panic into a system error
func (te *ToolExecutor) run(ctx context.Context, tool Tool, args interface{}) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewSystemError(errors.ErrCodeUnexpectedPanic,
				fmt.Sprintf("tool %s panicked: %v", tool.Name(), r), nil)
		}
	}()
	return tool.Execute(ctx, args)
}

// SanitizeArguments prepares arguments for logging: long strings are
// truncated with their length and base64 payloads are replaced by their size.
func SanitizeArguments(arguments map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(arguments))
	for key, value := range arguments {
		sanitized[key] = sanitizeArgument(key, value)
	}
	return sanitized
}

func sanitizeArgument(key string, value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if payloadFields[key] {
			return fmt.Sprintf("[%d chars]", len(v))
		}
		if len(v) > maxLogLength {
			return fmt.Sprintf("%s... [%d chars]", v[:maxLogLength], len(v))
		}
		return v
	case map[string]interface{}:
		return SanitizeArguments(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = sanitizeArgument(key, item)
		}
		return out
	default:
		return value
	}
}
