package errors

import (
	"fmt"
	"strings"
	"time"

	"mcp-insight-service/internal/models"
)

// ErrorCategory represents different types of errors in the system
type ErrorCategory string

const (
	// Missing or invalid process configuration (secrets, paths)
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	// Malformed tool arguments
	ErrorCategoryValidation ErrorCategory = "validation"
	// Unreadable tabular input
	ErrorCategoryParsing ErrorCategory = "parsing"
	// Generative API or SMTP relay failures
	ErrorCategoryExternalService ErrorCategory = "external_service"
	// Output directory and artifact errors
	ErrorCategoryFileSystem ErrorCategory = "filesystem"
	// MCP protocol related errors
	ErrorCategoryMCP ErrorCategory = "mcp"
	// System/internal errors
	ErrorCategorySystem ErrorCategory = "system"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// FieldViolation describes one offending argument field
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (fv FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", fv.Field, fv.Message)
}

// StructuredError represents a structured error with additional context
type StructuredError struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Violations  []FieldViolation       `json:"violations,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Recoverable bool                   `json:"recoverable"`
	Cause       error                  `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (se *StructuredError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", se.Category, se.Code, se.Message)
	if se.Details != "" {
		msg += ": " + se.Details
	}
	if se.Cause != nil && se.Details == "" {
		msg += ": " + se.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (se *StructuredError) Unwrap() error {
	return se.Cause
}

// Is matches another StructuredError by category and code so callers can
// test against the sentinel values below with errors.Is.
func (se *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return se.Category == t.Category && (t.Code == "" || se.Code == t.Code)
}

// ToMCPError converts a StructuredError to an MCP protocol error
func (se *StructuredError) ToMCPError() *models.MCPError {
	var mcpCode int
	switch se.Category {
	case ErrorCategoryValidation:
		mcpCode = models.CodeInvalidParams
	case ErrorCategoryMCP:
		if se.Code == ErrCodeToolNotFound {
			mcpCode = models.CodeInvalidParams
		} else {
			mcpCode = models.CodeInvalidRequest
		}
	default:
		mcpCode = models.CodeInternalError
	}

	message := se.Message
	if se.Details != "" {
		message = se.Message + ": " + se.Details
	}

	data := map[string]interface{}{
		"category":  se.Category,
		"code":      se.Code,
		"severity":  se.Severity,
		"timestamp": se.Timestamp,
		"context":   se.Context,
	}
	if len(se.Violations) > 0 {
		data["violations"] = se.Violations
	}

	return &models.MCPError{
		Code:    mcpCode,
		Message: message,
		Data:    data,
	}
}

// NewStructuredError creates a new structured error
func NewStructuredError(category ErrorCategory, severity ErrorSeverity, code, message string) *StructuredError {
	return &StructuredError{
		Category:    category,
		Severity:    severity,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		Recoverable: severity != ErrorSeverityCritical,
		Context:     make(map[string]interface{}),
	}
}

// WithDetails adds details to the error
func (se *StructuredError) WithDetails(details string) *StructuredError {
	se.Details = details
	return se
}

// WithContext adds context information to the error
func (se *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if se.Context == nil {
		se.Context = make(map[string]interface{})
	}
	se.Context[key] = value
	return se
}

// WithCause sets the underlying cause error
func (se *StructuredError) WithCause(err error) *StructuredError {
	se.Cause = err
	return se
}

// IsRecoverable returns whether the error is recoverable
func (se *StructuredError) IsRecoverable() bool {
	return se.Recoverable
}

// SetRecoverable sets the recoverable flag
func (se *StructuredError) SetRecoverable(recoverable bool) *StructuredError {
	se.Recoverable = recoverable
	return se
}

// Predefined error constructors for common error scenarios

// NewConfigurationError creates an error for a missing or invalid setting
func NewConfigurationError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryConfiguration, ErrorSeverityHigh, code, message).WithCause(err)
}

// NewFileSystemError creates a file system related error
func NewFileSystemError(code, message string, err error) *StructuredError {
	severity := ErrorSeverityMedium
	if code == ErrCodePermissionDenied {
		severity = ErrorSeverityHigh
	}

	return NewStructuredError(ErrorCategoryFileSystem, severity, code, message).WithCause(err)
}

// NewParsingError creates a tabular parsing related error
func NewParsingError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryParsing, ErrorSeverityLow, code, message).WithCause(err)
}

// NewExternalServiceError creates an error for a failed upstream call
func NewExternalServiceError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryExternalService, ErrorSeverityMedium, code, message).WithCause(err)
}

// NewMCPError creates an MCP protocol related error
func NewMCPError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryMCP, ErrorSeverityMedium, code, message).WithCause(err)
}

// NewUnknownToolError reports a tools/call for a name that is not registered
func NewUnknownToolError(name string) *StructuredError {
	return NewMCPError(ErrCodeToolNotFound, fmt.Sprintf("unknown tool: %s", name), nil).
		WithContext("tool_name", name)
}

// NewValidationError creates a validation related error
func NewValidationError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryValidation, ErrorSeverityLow, code, message).WithCause(err)
}

// NewArgumentsError creates a validation error listing every offending field.
// The first violation's field is also exposed under the "field" context key.
func NewArgumentsError(toolName string, violations []FieldViolation) *StructuredError {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}

	se := NewValidationError(ErrCodeInvalidArguments,
		fmt.Sprintf("invalid arguments for %s", toolName), nil).
		WithDetails(strings.Join(parts, "; ")).
		WithContext("tool_name", toolName)
	se.Violations = violations
	if len(violations) > 0 {
		se.WithContext("field", violations[0].Field)
	}
	return se
}

// NewSystemError creates a system/internal error
func NewSystemError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategorySystem, ErrorSeverityCritical, code, message).WithCause(err)
}

// Common error codes
const (
	// Configuration error codes
	ErrCodeMissingSecret = "MISSING_SECRET"
	ErrCodeInvalidConfig = "INVALID_CONFIG"

	// File system error codes
	ErrCodeWriteFailed      = "WRITE_FAILED"
	ErrCodePermissionDenied = "PERMISSION_DENIED"

	// Parsing error codes
	ErrCodeInvalidBase64     = "INVALID_BASE64"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeMalformedTable    = "MALFORMED_TABLE"
	ErrCodeEmptyTable        = "EMPTY_TABLE"

	// External service error codes
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeEmptyGeneration  = "EMPTY_GENERATION"
	ErrCodeMailSendFailed   = "MAIL_SEND_FAILED"
	ErrCodeCircuitOpen      = "CIRCUIT_OPEN"

	// MCP protocol error codes
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeMethodNotFound = "METHOD_NOT_FOUND"
	ErrCodeInvalidParams  = "INVALID_PARAMS"
	ErrCodeToolNotFound   = "TOOL_NOT_FOUND"

	// Validation error codes
	ErrCodeInvalidArguments = "INVALID_ARGUMENTS"
	ErrCodeSchemaMismatch   = "SCHEMA_MISMATCH"

	// System error codes
	ErrCodeInitializationFailed = "INITIALIZATION_FAILED"
	ErrCodeToolTimeout          = "TOOL_TIMEOUT"
	ErrCodeToolExecutionFailed  = "TOOL_EXECUTION_FAILED"
	ErrCodeUnexpectedPanic      = "UNEXPECTED_PANIC"
)

// Sentinels for errors.Is checks by category
var (
	ErrConfiguration   = &StructuredError{Category: ErrorCategoryConfiguration}
	ErrValidation      = &StructuredError{Category: ErrorCategoryValidation}
	ErrParsing         = &StructuredError{Category: ErrorCategoryParsing}
	ErrExternalService = &StructuredError{Category: ErrorCategoryExternalService}
	ErrUnknownTool     = &StructuredError{Category: ErrorCategoryMCP, Code: ErrCodeToolNotFound}
)
