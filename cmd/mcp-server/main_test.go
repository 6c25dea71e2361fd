package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-insight-service/internal/server"
	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/logging"
)

// clearEnv blanks every variable the configuration reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvGeminiAPIKey, config.EnvAnthropicAPIKey, config.EnvProvider, config.EnvModel,
		config.EnvSMTPHost, config.EnvSMTPPort, config.EnvEmailUser, config.EnvEmailPass,
		config.EnvEmailFrom, config.EnvOutputDir, config.EnvPromptsDir, config.EnvLogLevel,
	} {
		t.Setenv(name, "")
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()

	assert.Equal(t, server.ServerVersion, cmd.Version)
	for _, name := range []string{"config", "log-level", "output-dir", "prompts-dir", "provider", "model"} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, "flag %s", name)
		assert.Empty(t, f.DefValue, "flag %s", name)
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}

func TestRootCommandRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--provider", "openai"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")
}

func TestLoadConfigFlagsOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvGeminiAPIKey, "gm-key")
	t.Setenv(config.EnvAnthropicAPIKey, "ant-key")
	t.Setenv(config.EnvOutputDir, "/from/env")

	cfg, err := loadConfig(&options{overrides: config.Overrides{
		Provider:  "anthropic",
		OutputDir: "/from/flag",
		LogLevel:  "DEBUG",
	}})
	require.NoError(t, err)

	assert.Equal(t, config.ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "ant-key", cfg.APIKey)
	assert.Equal(t, config.DefaultAnthropicModel, cfg.Model)
	assert.Equal(t, "/from/flag", cfg.DefaultOutputDir)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gemini-test\noutputDir: /from/file\n"), 0644))

	cfg, err := loadConfig(&options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.Model)
	assert.Equal(t, "/from/file", cfg.DefaultOutputDir)

	cfg, err = loadConfig(&options{configPath: path, overrides: config.Overrides{Model: "gemini-flag"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini-flag", cfg.Model)
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := loadConfig(&options{configPath: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestWarnMissingSecrets(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		warnings int
	}{
		{name: "nothing configured", warnings: 2},
		{
			name:     "api key only",
			env:      map[string]string{config.EnvGeminiAPIKey: "gm-key"},
			warnings: 1,
		},
		{
			name: "everything configured",
			env: map[string]string{
				config.EnvGeminiAPIKey: "gm-key",
				config.EnvEmailUser:    "bot@example.com",
				config.EnvEmailPass:    "secret",
			},
			warnings: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(&options{})
			require.NoError(t, err)

			var buf bytes.Buffer
			lm := logging.NewLoggingManagerWithWriter(&buf)

			assert.Equal(t, tt.warnings, warnMissingSecrets(cfg, lm))
			assert.Equal(t, int64(tt.warnings), lm.GetStats().MessagesByLevel["WARN"])
			if tt.warnings == 0 {
				assert.Empty(t, buf.String())
			}
		})
	}
}
