package tools

import (
	"context"

	"mcp-insight-service/pkg/errors"
)

// Tool names
const (
	ToolGenerateThinking = "generate-thinking"
	ToolSendEmail        = "send-email"
	ToolAnalyzeData      = "analyze-data"
)

// Tool represents an executable function exposed via MCP
type Tool interface {
	// Name returns the unique identifier for the tool
	Name() string

	// Description returns a human-readable description
	Description() string

	// Schema returns the advertised and compiled input schema
	Schema() *ArgumentSchema

	// Parse turns raw arguments into the tool's typed argument record, or
	// reports every offending field
	Parse(arguments map[string]interface{}) (interface{}, []errors.FieldViolation)

	// Execute runs the tool with arguments returned by Parse
	Execute(ctx context.Context, args interface{}) (string, error)
}

// ToolDefinition represents metadata about a tool
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// NewToolDefinition creates a ToolDefinition from a Tool
func NewToolDefinition(tool Tool) ToolDefinition {
	return ToolDefinition{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: tool.Schema().Document(),
	}
}
