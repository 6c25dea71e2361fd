package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mcp-insight-service/internal/container"
	"mcp-insight-service/internal/server"
	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/logging"
)

type options struct {
	configPath string
	overrides  config.Overrides
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "mcp-server",
		Short:   "MCP server for model-assisted thinking, email and data analysis",
		Long:    "mcp-server speaks the Model Context Protocol over stdin and stdout and exposes the generate-thinking, send-email and analyze-data tools.",
		Version: server.ServerVersion,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "Logging level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&opts.overrides.OutputDir, "output-dir", "", "Default directory for generated files")
	flags.StringVar(&opts.overrides.PromptsDir, "prompts-dir", "", "Directory with prompt template overrides")
	flags.StringVar(&opts.overrides.Provider, "provider", "", "Generative API provider (gemini, anthropic)")
	flags.StringVar(&opts.overrides.Model, "model", "", "Model name for the selected provider")

	return cmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(opts.overrides); err != nil {
		return nil, err
	}
	return cfg, nil
}

// warnMissingSecrets logs one warning per tool group that cannot run
func warnMissingSecrets(cfg *config.Config, lm *logging.LoggingManager) int {
	warnings := 0
	if err := cfg.RequireGenerator(); err != nil {
		lm.LogConfigurationWarning(cfg.APIKeyEnv(), "generate-thinking, send-email and detailed analyze-data will fail")
		warnings++
	}
	if err := cfg.RequireMailer(); err != nil {
		lm.LogConfigurationWarning(config.EnvEmailUser+"/"+config.EnvEmailPass, "send-email will fail")
		warnings++
	}
	return warnings
}

func run(parent context.Context, cfg *config.Config) error {
	startTime := time.Now()

	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	lm := c.Logging()
	lm.LogStartupSequence("container_ready", map[string]interface{}{
		"provider":   cfg.Provider,
		"model":      cfg.Model,
		"output_dir": cfg.DefaultOutputDir,
	}, time.Since(startTime), true)

	warnMissingSecrets(cfg, lm)

	if err := c.Prompts().StartWatching(); err != nil {
		lm.LogError("startup", err, "Prompt hot reload disabled", nil)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return c.Server().Start(gctx)
	})
	if mon := c.Monitor(); mon != nil {
		g.Go(func() error {
			return mon.Run(gctx)
		})
	}

	err = g.Wait()
	lm.LogShutdownSequence("shutdown_complete", map[string]interface{}{}, time.Since(startTime), err == nil)
	return err
}

func main() {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
