// Package container wires the service components using go.uber.org/dig.
package container

import (
	"context"
	"fmt"

	"go.uber.org/dig"

	"mcp-insight-service/internal/server"
	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/llm"
	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/mailer"
	"mcp-insight-service/pkg/markdown"
	"mcp-insight-service/pkg/monitor"
	"mcp-insight-service/pkg/prompts"
	"mcp-insight-service/pkg/tools"
)

// Container holds the resolved service singletons
type Container struct {
	cfg     *config.Config
	logs    *logging.LoggingManager
	monitor *monitor.FileSystemMonitor
	prompts *prompts.PromptManager
	tools   *tools.ToolManager
	server  *server.MCPServer
}

func (c *Container) Config() *config.Config           { return c.cfg }
func (c *Container) Logging() *logging.LoggingManager { return c.logs }
func (c *Container) Prompts() *prompts.PromptManager  { return c.prompts }
func (c *Container) Tools() *tools.ToolManager        { return c.tools }
func (c *Container) Server() *server.MCPServer        { return c.server }

// Monitor returns the prompt directory watcher, or nil when none could be created
func (c *Container) Monitor() *monitor.FileSystemMonitor { return c.monitor }

// Close releases the file watcher
func (c *Container) Close() error {
	if c.monitor == nil {
		return nil
	}
	return c.monitor.StopWatching()
}

// Overrides replaces external collaborators, mainly for tests
type Overrides struct {
	Generator llm.Generator
	Sender    mailer.Sender
}

// New builds and wires every component from cfg
func New(cfg *config.Config) (*Container, error) {
	return NewWithOverrides(cfg, Overrides{})
}

// NewWithOverrides is New with some collaborators supplied by the caller
func NewWithOverrides(cfg *config.Config, o Overrides) (*Container, error) {
	d := dig.New()

	providers := []interface{}{
		func() *config.Config { return cfg },
		newLoggingManager,
		newCircuitBreakers,
		newMonitor,
		newPromptManager,
		markdown.NewRenderer,
		newOutputWriter,
		newSubjectGenerator,
		newToolManager,
		server.NewMCPServer,
	}

	if o.Generator != nil {
		providers = append(providers, func() llm.Generator { return o.Generator })
	} else {
		providers = append(providers, newGenerator)
	}
	if o.Sender != nil {
		providers = append(providers, func() mailer.Sender { return o.Sender })
	} else {
		providers = append(providers, newSender)
	}

	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}
	for _, dec := range []interface{}{decorateGenerator, decorateSender} {
		if err := d.Decorate(dec); err != nil {
			return nil, fmt.Errorf("register decorator: %w", err)
		}
	}

	var result *Container
	err := d.Invoke(func(
		logs *logging.LoggingManager,
		mon *monitor.FileSystemMonitor,
		pm *prompts.PromptManager,
		tm *tools.ToolManager,
		srv *server.MCPServer,
	) {
		result = &Container{
			cfg:     cfg,
			logs:    logs,
			monitor: mon,
			prompts: pm,
			tools:   tm,
			server:  srv,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("build container: %w", dig.RootCause(err))
	}
	return result, nil
}

func newLoggingManager(cfg *config.Config) *logging.LoggingManager {
	lm := logging.NewLoggingManager()
	lm.SetLogLevel(cfg.LogLevel)
	lm.SetGlobalContext("service", server.ServerName)
	lm.SetGlobalContext("version", server.ServerVersion)
	return lm
}

// newMonitor never fails the build: without a watcher prompts are simply not
// hot-reloaded
func newMonitor(lm *logging.LoggingManager) *monitor.FileSystemMonitor {
	mon, err := monitor.NewFileSystemMonitor(".yaml", ".yml", ".json")
	if err != nil {
		lm.LogError("container", err, "Failed to create file system monitor", map[string]interface{}{
			"component": "file_monitor",
		})
		return nil
	}
	return mon
}

func newPromptManager(cfg *config.Config, mon *monitor.FileSystemMonitor, lm *logging.LoggingManager) *prompts.PromptManager {
	pm := prompts.NewPromptManager(cfg.PromptsDir, mon)
	if err := pm.LoadPrompts(); err != nil {
		lm.LogError("container", err, "Failed to load prompt overrides, using built-in templates", map[string]interface{}{
			"prompts_dir": cfg.PromptsDir,
		})
	}
	return pm
}

// Breaker names, also the keys under circuit_breakers in server/performance
const (
	breakerGenerativeAPI = "generative_api"
	breakerSMTP          = "smtp"
)

func newCircuitBreakers(lm *logging.LoggingManager) *errors.CircuitBreakerManager {
	logger := lm.GetLogger("circuit_breaker")
	return errors.NewCircuitBreakerManager(func(name string, from, to errors.CircuitBreakerState) {
		logger.WithContext("circuit_breaker", name).
			WithContext("from", from.String()).
			WithContext("to", to.String()).
			Warn("Circuit breaker state changed")
	})
}

func newGenerator(cfg *config.Config) (llm.Generator, error) {
	return llm.New(context.Background(), cfg)
}

// decorateGenerator applies to both the configured and an overriding generator
func decorateGenerator(gen llm.Generator, cfg *config.Config, lm *logging.LoggingManager, cbm *errors.CircuitBreakerManager) llm.Generator {
	breaker := cbm.GetOrCreate(breakerGenerativeAPI, errors.DefaultCircuitBreakerConfig(breakerGenerativeAPI))
	return llm.WithLogging(llm.WithCircuitBreaker(gen, breaker), cfg.Provider, lm.GetLogger("llm"))
}

func newSubjectGenerator(gen llm.Generator, pm *prompts.PromptManager) *llm.SubjectGenerator {
	return llm.NewSubjectGenerator(gen, pm)
}

func newSender(cfg *config.Config) mailer.Sender {
	return mailer.NewSMTPSender(cfg.Mail)
}

func decorateSender(sender mailer.Sender, cbm *errors.CircuitBreakerManager) mailer.Sender {
	return mailer.WithCircuitBreaker(sender, cbm.GetOrCreate(breakerSMTP, errors.DefaultCircuitBreakerConfig(breakerSMTP)))
}

func newOutputWriter(cfg *config.Config, lm *logging.LoggingManager) *tools.OutputWriter {
	return tools.NewOutputWriter(cfg.DefaultOutputDir, lm.GetLogger("output"))
}

// toolDeps groups the inputs of newToolManager
type toolDeps struct {
	dig.In

	Config   *config.Config
	Logs     *logging.LoggingManager
	Gen      llm.Generator
	Subjects *llm.SubjectGenerator
	Sender   mailer.Sender
	Prompts  *prompts.PromptManager
	Markdown *markdown.Renderer
	Output   *tools.OutputWriter
}

func newToolManager(deps toolDeps) (*tools.ToolManager, error) {
	logger := deps.Logs.GetLogger("tools")

	thinking, err := tools.NewGenerateThinkingTool(deps.Gen, deps.Prompts, deps.Markdown, deps.Output, logger)
	if err != nil {
		return nil, err
	}
	email, err := tools.NewSendEmailTool(deps.Config, deps.Subjects, deps.Sender, deps.Markdown, deps.Output, logger)
	if err != nil {
		return nil, err
	}
	analyze, err := tools.NewAnalyzeDataTool(deps.Gen, deps.Prompts, deps.Markdown, deps.Output, logger)
	if err != nil {
		return nil, err
	}

	tm := tools.NewToolManager(tools.NewToolExecutor(deps.Config.ToolTimeout, logger), deps.Logs)
	for _, tool := range []tools.Tool{thinking, email, analyze} {
		if err := tm.RegisterTool(tool); err != nil {
			return nil, err
		}
	}
	return tm, nil
}
