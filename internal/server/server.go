// Package server implements the MCP stdio transport: newline-delimited
// JSON-RPC 2.0 messages read from stdin and answered on stdout.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"mcp-insight-service/internal/models"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/prompts"
	"mcp-insight-service/pkg/tools"
)

// Server identity reported by initialize
const (
	ServerName    = "mcp-insight-service"
	ServerVersion = "1.0.0"
)

// MCPServer represents the main MCP server
type MCPServer struct {
	serverInfo   models.MCPServerInfo
	capabilities models.MCPCapabilities
	initialized  bool

	toolManager   *tools.ToolManager
	promptManager *prompts.PromptManager
	breakers      *errors.CircuitBreakerManager

	loggingManager *logging.LoggingManager
	logger         *logging.StructuredLogger

	mu sync.RWMutex
}

// NewMCPServer creates a server exposing the tools registered in toolManager.
// promptManager and breakers are only used for metrics and may be nil.
func NewMCPServer(toolManager *tools.ToolManager, promptManager *prompts.PromptManager, breakers *errors.CircuitBreakerManager, loggingManager *logging.LoggingManager) *MCPServer {
	return &MCPServer{
		serverInfo: models.MCPServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		capabilities: models.MCPCapabilities{
			Tools: &models.MCPToolCapabilities{},
		},
		toolManager:    toolManager,
		promptManager:  promptManager,
		breakers:       breakers,
		loggingManager: loggingManager,
		logger:         loggingManager.GetLogger("server"),
	}
}

// Start serves stdin and stdout until ctx is cancelled or stdin closes
func (s *MCPServer) Start(ctx context.Context) error {
	startTime := time.Now()

	s.loggingManager.LogStartupSequence("server_ready", map[string]interface{}{
		"tools": len(s.toolManager.ListTools()),
	}, time.Since(startTime), true)
	s.logger.Info("MCP Insight Service started successfully")

	err := s.Serve(ctx, os.Stdin, os.Stdout)

	s.loggingManager.LogShutdownSequence("server_stop", map[string]interface{}{
		"uptime_ms": time.Since(startTime).Milliseconds(),
	}, 0, err == nil)
	return err
}

// Serve processes one message per line from reader and writes responses to
// writer. Messages are handled one at a time in arrival order. It returns nil
// when reader is exhausted or ctx is cancelled.
func (s *MCPServer) Serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		br := bufio.NewReader(reader)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					readErr <- err
				}
				return
			}
		}
	}()

	encoder := json.NewEncoder(writer)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}

			response := s.processLine(ctx, line)
			if response == nil {
				continue
			}
			if err := encoder.Encode(response); err != nil {
				s.logger.WithError(err).Error("Error encoding response")
				return err
			}
		}
	}
}

// processLine decodes one frame. Undecodable frames are answered with a
// parse error and the loop carries on.
func (s *MCPServer) processLine(ctx context.Context, line []byte) *models.MCPMessage {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	var message models.MCPMessage
	if err := json.Unmarshal(line, &message); err != nil {
		s.logger.WithError(err).
			WithContext("bytes", len(line)).
			Warn("Error decoding message")
		return s.createErrorResponse(nil, models.CodeParseError, "Parse error")
	}

	return s.handleMessage(ctx, &message)
}

// HandleMessage processes individual MCP messages (exported for testing)
func (s *MCPServer) HandleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	return s.handleMessage(ctx, message)
}

// handleMessage processes individual MCP messages
func (s *MCPServer) handleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	startTime := time.Now()
	var response *models.MCPMessage
	var success = true
	var errorMsg string

	defer func() {
		if response != nil && response.Error != nil {
			success = false
			errorMsg = response.Error.Message
		}
		s.loggingManager.LogMCPRequest(message.Method, message.ID, time.Since(startTime), success, errorMsg)
	}()

	if message.JSONRPC != "2.0" {
		response = s.createErrorResponse(message.ID, models.CodeInvalidRequest, "Invalid Request: jsonrpc must be \"2.0\"")
		return response
	}

	// notifications are never answered; only notifications/initialized has an effect
	if message.IsNotification() {
		if message.Method == "notifications/initialized" {
			s.handleInitialized(message)
		}
		return nil
	}

	switch message.Method {
	case "initialize":
		response = s.handleInitialize(message)
	case "ping":
		response = s.handlePing(message)
	case "tools/list":
		response = s.handleToolsList(message)
	case "tools/call":
		response = s.handleToolsCall(ctx, message)
	case "server/performance":
		response = s.handlePerformanceMetrics(message)
	default:
		response = s.createErrorResponse(message.ID, models.CodeMethodNotFound, "Method not found")
	}

	return response
}
