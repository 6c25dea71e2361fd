package server

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"mcp-insight-service/internal/models"
	"mcp-insight-service/pkg/errors"
)

// handleToolsList handles the tools/list method
func (s *MCPServer) handleToolsList(message *models.MCPMessage) *models.MCPMessage {
	toolDefinitions := s.toolManager.ListTools()

	mcpTools := make([]models.MCPTool, 0, len(toolDefinitions))
	for _, toolDef := range toolDefinitions {
		mcpTools = append(mcpTools, models.MCPTool{
			Name:        toolDef.Name,
			Description: toolDef.Description,
			InputSchema: toolDef.InputSchema,
		})
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  models.MCPToolsListResult{Tools: mcpTools},
	}
}

// handleToolsCall handles the tools/call method. Tool failures become
// JSON-RPC errors for this request only.
func (s *MCPServer) handleToolsCall(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	var params models.MCPToolsCallParams
	if message.Params != nil {
		paramsBytes, err := json.Marshal(message.Params)
		if err != nil {
			return s.createErrorResponse(message.ID, models.CodeInvalidParams, "Invalid parameters")
		}
		if err := json.Unmarshal(paramsBytes, &params); err != nil {
			return s.createErrorResponse(message.ID, models.CodeInvalidParams, "Invalid parameters format")
		}
	}

	if params.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	result, err := s.toolManager.ExecuteTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.handleToolExecutionError(message.ID, params.Name, err)
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  result,
	}
}

// handleToolExecutionError creates the error response for a failed tool call
func (s *MCPServer) handleToolExecutionError(id interface{}, toolName string, err error) *models.MCPMessage {
	var structuredErr *errors.StructuredError
	if stderrors.As(err, &structuredErr) {
		return s.createStructuredErrorResponse(id, structuredErr)
	}

	structuredErr = errors.NewSystemError(errors.ErrCodeToolExecutionFailed,
		"Tool execution failed", err).WithContext("tool_name", toolName)
	return s.createStructuredErrorResponse(id, structuredErr)
}
