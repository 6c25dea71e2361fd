package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/monitor"
)

// PromptManager manages the lifecycle of prompt definitions
type PromptManager struct {
	registry   map[string]*PromptDefinition
	promptsDir string
	monitor    *monitor.FileSystemMonitor
	mu         sync.RWMutex
	logger     *logging.StructuredLogger

	stats PromptStats
}

// PromptStats tracks render counts per template
type PromptStats struct {
	TotalRenders      int64
	RendersByName     map[string]int64
	Reloads           int64
	TotalRenderTimeUs int64
	mu                sync.Mutex
}

// NewPromptManager creates a manager holding the built-in templates. monitor
// may be nil, in which case StartWatching is a no-op.
func NewPromptManager(promptsDir string, monitor *monitor.FileSystemMonitor) *PromptManager {
	return &PromptManager{
		registry:   Defaults(),
		promptsDir: promptsDir,
		monitor:    monitor,
		logger:     logging.NewStructuredLogger("PromptManager"),
		stats: PromptStats{
			RendersByName: make(map[string]int64),
		},
	}
}

// LoadPrompts rebuilds the registry from the defaults plus every definition
// file in the prompts directory. A file that fails to load is skipped and
// whatever it previously contributed is kept.
func (pm *PromptManager) LoadPrompts() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	next := Defaults()

	if pm.promptsDir == "" {
		pm.registry = next
		return nil
	}
	if _, err := os.Stat(pm.promptsDir); os.IsNotExist(err) {
		pm.logger.WithContext("prompts_dir", pm.promptsDir).
			Debug("Prompts directory does not exist, using built-in templates")
		pm.registry = next
		return nil
	}

	entries, err := os.ReadDir(pm.promptsDir)
	if err != nil {
		return fmt.Errorf("failed to read prompts directory: %w", err)
	}

	loadedCount := 0
	errorCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !IsDefinitionFile(entry.Name()) {
			continue
		}

		filePath := filepath.Join(pm.promptsDir, entry.Name())
		def, err := LoadFromFile(filePath)
		if err != nil {
			pm.logger.WithError(err).
				WithContext("file", filePath).
				Error("Failed to load prompt definition, skipping")
			errorCount++
			for name, prev := range pm.registry {
				if prev.Source == filePath {
					next[name] = prev
				}
			}
			continue
		}

		next[def.Name] = def
		loadedCount++

		pm.logger.WithContext("prompt_name", def.Name).
			WithContext("file", entry.Name()).
			Debug("Prompt definition loaded")
	}

	pm.registry = next

	pm.logger.WithContext("loaded", loadedCount).
		WithContext("errors", errorCount).
		WithContext("total", len(pm.registry)).
		Info("Prompt definitions loaded")

	return nil
}

// ReloadPrompts refreshes the registry from disk
func (pm *PromptManager) ReloadPrompts() error {
	if err := pm.LoadPrompts(); err != nil {
		pm.logger.WithError(err).Error("Failed to reload prompts")
		return err
	}

	pm.stats.mu.Lock()
	pm.stats.Reloads++
	pm.stats.mu.Unlock()

	pm.logger.Info("Prompts reloaded successfully")
	return nil
}

// GetPrompt retrieves a prompt definition by name
func (pm *PromptManager) GetPrompt(name string) (*PromptDefinition, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	prompt, exists := pm.registry[name]
	if !exists {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}
	return prompt, nil
}

// ListPrompts returns all prompts sorted alphabetically by name
func (pm *PromptManager) ListPrompts() []*PromptDefinition {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	prompts := make([]*PromptDefinition, 0, len(pm.registry))
	for _, def := range pm.registry {
		prompts = append(prompts, def)
	}
	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].Name < prompts[j].Name
	})
	return prompts
}

// Render fills the named template with args
func (pm *PromptManager) Render(name string, args map[string]interface{}) (string, error) {
	start := time.Now()

	prompt, err := pm.GetPrompt(name)
	if err != nil {
		return "", err
	}
	out := RenderTemplate(prompt.Template, args)

	pm.stats.mu.Lock()
	pm.stats.TotalRenders++
	pm.stats.RendersByName[name]++
	pm.stats.TotalRenderTimeUs += time.Since(start).Microseconds()
	pm.stats.mu.Unlock()

	return out, nil
}

// StartWatching registers the prompts directory with the file system monitor
func (pm *PromptManager) StartWatching() error {
	if pm.monitor == nil {
		return nil
	}
	if _, err := os.Stat(pm.promptsDir); os.IsNotExist(err) {
		pm.logger.WithContext("prompts_dir", pm.promptsDir).
			Warn("Prompts directory does not exist, skipping file system monitoring")
		return nil
	}

	if err := pm.monitor.WatchDirectory(pm.promptsDir, pm.handleFileEvent); err != nil {
		return fmt.Errorf("failed to watch prompts directory: %w", err)
	}

	pm.logger.WithContext("prompts_dir", pm.promptsDir).
		Info("Started watching prompts directory for changes")
	return nil
}

// handleFileEvent reloads on any change to a definition file. The monitor
// already debounces.
func (pm *PromptManager) handleFileEvent(event monitor.FileEvent) {
	if !IsDefinitionFile(event.Path) {
		return
	}

	pm.logger.WithContext("event_type", event.Type).
		WithContext("file", filepath.Base(event.Path)).
		Debug("Prompt file event detected")

	_ = pm.ReloadPrompts()
}

// GetPerformanceMetrics returns render statistics
func (pm *PromptManager) GetPerformanceMetrics() map[string]interface{} {
	pm.mu.RLock()
	total := len(pm.registry)
	pm.mu.RUnlock()

	pm.stats.mu.Lock()
	defer pm.stats.mu.Unlock()

	byName := make(map[string]int64, len(pm.stats.RendersByName))
	for k, v := range pm.stats.RendersByName {
		byName[k] = v
	}

	var avg float64
	if pm.stats.TotalRenders > 0 {
		avg = float64(pm.stats.TotalRenderTimeUs) / float64(pm.stats.TotalRenders)
	}

	return map[string]interface{}{
		"total_prompts_loaded": total,
		"total_renders":        pm.stats.TotalRenders,
		"renders_by_name":      byName,
		"reloads":              pm.stats.Reloads,
		"avg_render_time_us":   avg,
	}
}
