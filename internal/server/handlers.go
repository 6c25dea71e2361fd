package server

import (
	"runtime"
	"time"

	"mcp-insight-service/internal/models"
	"mcp-insight-service/pkg/errors"
)

const instructions = "Tools for reasoning with a language model (generate-thinking), " +
	"sending HTML email with a generated subject (send-email) and analysing CSV or Excel files (analyze-data)."

// handleInitialize handles the MCP initialize method
func (s *MCPServer) handleInitialize(message *models.MCPMessage) *models.MCPMessage {
	result := models.MCPInitializeResult{
		ProtocolVersion: models.ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.serverInfo,
		Instructions:    instructions,
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  result,
	}
}

// handleInitialized handles the notifications/initialized method
func (s *MCPServer) handleInitialized(message *models.MCPMessage) *models.MCPMessage {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("MCP client initialized")
	return nil
}

func (s *MCPServer) handlePing(message *models.MCPMessage) *models.MCPMessage {
	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  map[string]interface{}{},
	}
}

// handlePerformanceMetrics handles requests for server performance metrics
func (s *MCPServer) handlePerformanceMetrics(message *models.MCPMessage) *models.MCPMessage {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()

	serverMetrics := map[string]interface{}{
		"server_info":   s.serverInfo,
		"initialized":   initialized,
		"tool_metrics":  s.toolManager.GetPerformanceMetrics(),
		"logging_stats": s.loggingManager.GetStats(),
		"goroutines":    runtime.NumGoroutine(),
		"memory_stats":  getMemoryStats(),
		"timestamp":     time.Now().Format(time.RFC3339),
	}
	if s.promptManager != nil {
		serverMetrics["prompt_metrics"] = s.promptManager.GetPerformanceMetrics()
	}
	if s.breakers != nil {
		serverMetrics["circuit_breakers"] = s.breakers.GetAllStats()
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  serverMetrics,
	}
}

// createErrorResponse creates an MCP error response
func (s *MCPServer) createErrorResponse(id interface{}, code int, message string) *models.MCPMessage {
	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error: &models.MCPError{
			Code:    code,
			Message: message,
		},
	}
}

// createStructuredErrorResponse creates an MCP error response from a structured error
func (s *MCPServer) createStructuredErrorResponse(id interface{}, structuredErr *errors.StructuredError) *models.MCPMessage {
	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      id,
		Error:   structuredErr.ToMCPError(),
	}
}

func getMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"alloc_bytes":       m.Alloc,
		"total_alloc_bytes": m.TotalAlloc,
		"sys_bytes":         m.Sys,
		"num_gc":            m.NumGC,
	}
}
