package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mcp-insight-service/internal/models"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
)

// UnknownToolKey counts calls to unregistered names in InvocationsByName
const UnknownToolKey = "(unknown)"

// ToolManager manages tool registration, discovery, and execution
type ToolManager struct {
	registry map[string]Tool
	order    []string
	executor *ToolExecutor
	logger   *logging.StructuredLogger
	logs     *logging.LoggingManager
	mu       sync.RWMutex

	stats ToolStats
}

// ToolStats tracks performance metrics for tool invocations
type ToolStats struct {
	TotalInvocations     int64
	FailedInvocations    int64
	InvocationsByName    map[string]int64
	TotalExecutionTimeMs int64
	ExecutionTimeByName  map[string]int64
	TimeoutCount         int64
	mu                   sync.RWMutex
}

// NewToolManager creates a new ToolManager instance
func NewToolManager(executor *ToolExecutor, logs *logging.LoggingManager) *ToolManager {
	tm := &ToolManager{
		registry: make(map[string]Tool),
		executor: executor,
		logger:   logs.GetLogger("ToolManager"),
		logs:     logs,
		stats: ToolStats{
			InvocationsByName:   make(map[string]int64),
			ExecutionTimeByName: make(map[string]int64),
		},
	}
	executor.SetTimeoutCallback(tm.RecordTimeout)
	return tm
}

// RegisterTool registers a new tool in the manager. Tools are listed in
// registration order.
func (tm *ToolManager) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Schema() == nil {
		return fmt.Errorf("tool %s has no input schema", name)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.registry[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	if tool.Description() == "" {
		tm.logger.WithContext("tool", name).
			Warn("Tool registered without description")
	}

	tm.registry[name] = tool
	tm.order = append(tm.order, name)
	tm.logger.WithContext("tool", name).
		Info("Tool registered")

	return nil
}

// GetTool retrieves a tool by name
func (tm *ToolManager) GetTool(name string) (Tool, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tool, exists := tm.registry[name]
	if !exists {
		return nil, errors.NewUnknownToolError(name)
	}

	return tool, nil
}

// ListTools returns all registered tool definitions
func (tm *ToolManager) ListTools() []ToolDefinition {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tools := make([]ToolDefinition, 0, len(tm.order))
	for _, name := range tm.order {
		tools = append(tools, NewToolDefinition(tm.registry[name]))
	}

	return tools
}

// ExecuteTool executes a tool by name and wraps its text in a tools/call
// result. An unknown name fails before any argument is looked at.
func (tm *ToolManager) ExecuteTool(ctx context.Context, name string, arguments map[string]interface{}) (*models.MCPToolsCallResult, error) {
	startTime := time.Now()

	tool, err := tm.GetTool(name)
	if err != nil {
		tm.recordFailure(UnknownToolKey)
		tm.logs.LogToolInvocation(name, time.Since(startTime), err)
		return nil, err
	}

	text, err := tm.executor.Execute(ctx, tool, arguments)

	elapsed := time.Since(startTime)
	tm.logs.LogToolInvocation(name, elapsed, err)
	if err != nil {
		tm.recordFailure(name)
		return nil, err
	}
	tm.recordSuccess(name, elapsed.Milliseconds())

	result := models.NewTextResult(text)
	return &result, nil
}

// GetPerformanceMetrics returns current performance metrics
func (tm *ToolManager) GetPerformanceMetrics() map[string]interface{} {
	tm.stats.mu.RLock()
	defer tm.stats.mu.RUnlock()

	invocationsByName := make(map[string]int64, len(tm.stats.InvocationsByName))
	for name, count := range tm.stats.InvocationsByName {
		invocationsByName[name] = count
	}

	executionTimeByName := make(map[string]int64, len(tm.stats.ExecutionTimeByName))
	for name, ms := range tm.stats.ExecutionTimeByName {
		executionTimeByName[name] = ms
	}

	return map[string]interface{}{
		"total_invocations":       tm.stats.TotalInvocations,
		"failed_invocations":      tm.stats.FailedInvocations,
		"invocations_by_name":     invocationsByName,
		"total_execution_time_ms": tm.stats.TotalExecutionTimeMs,
		"execution_time_by_name":  executionTimeByName,
		"timeout_count":           tm.stats.TimeoutCount,
	}
}

func (tm *ToolManager) recordSuccess(toolName string, executionTimeMs int64) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.InvocationsByName[toolName]++
	tm.stats.TotalExecutionTimeMs += executionTimeMs
	tm.stats.ExecutionTimeByName[toolName] += executionTimeMs
}

func (tm *ToolManager) recordFailure(toolName string) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.FailedInvocations++
	tm.stats.InvocationsByName[toolName]++
}

// RecordTimeout records a timeout event
func (tm *ToolManager) RecordTimeout() {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TimeoutCount++
}
