// Package config holds the process configuration that is constructed once at
// startup and threaded into every tool.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mcp-insight-service/pkg/errors"
)

// Supported generator backends
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Environment variable names
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvProvider        = "LLM_PROVIDER"
	EnvModel           = "LLM_MODEL"
	EnvSMTPHost        = "SMTP_HOST"
	EnvSMTPPort        = "SMTP_PORT"
	EnvEmailUser       = "EMAIL_USER"
	EnvEmailPass       = "EMAIL_PASS"
	EnvEmailFrom       = "EMAIL_FROM"
	EnvOutputDir       = "OUTPUT_DIR"
	EnvPromptsDir      = "PROMPTS_DIR"
	EnvLogLevel        = "LOG_LEVEL"
)

// Defaults
const (
	DefaultProvider    = ProviderGemini
	DefaultGeminiModel = "gemini-2.0-flash"
	// DefaultAnthropicModel is used when the provider is anthropic and no model is set
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultSMTPHost       = "smtp.gmail.com"
	DefaultSMTPPort       = 587
	DefaultOutputDir      = "output"
	DefaultPromptsDir     = "mcp/prompts"
	DefaultLogLevel       = "INFO"
	DefaultToolTimeout    = 120 * time.Second
)

// MailConfig configures the SMTP relay
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Config is the service configuration
type Config struct {
	Provider         string        `yaml:"provider"`
	APIKey           string        `yaml:"apiKey"`
	Model            string        `yaml:"model"`
	Mail             MailConfig    `yaml:"mail"`
	DefaultOutputDir string        `yaml:"outputDir"`
	PromptsDir       string        `yaml:"promptsDir"`
	LogLevel         string        `yaml:"logLevel"`
	ToolTimeout      time.Duration `yaml:"toolTimeout"`
}

// Default returns a configuration with every optional field populated
func Default() *Config {
	return &Config{
		Provider: DefaultProvider,
		Mail: MailConfig{
			Host: DefaultSMTPHost,
			Port: DefaultSMTPPort,
		},
		DefaultOutputDir: DefaultOutputDir,
		PromptsDir:       DefaultPromptsDir,
		LogLevel:         DefaultLogLevel,
		ToolTimeout:      DefaultToolTimeout,
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// process environment, in that order of precedence.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfigurationError(errors.ErrCodeInvalidConfig,
				"failed to read config file", err).WithContext("path", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewConfigurationError(errors.ErrCodeInvalidConfig,
				"failed to parse config file", err).WithContext("path", path)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(EnvProvider, &c.Provider)
	c.Provider = strings.ToLower(c.Provider)

	switch c.Provider {
	case ProviderAnthropic:
		set(EnvAnthropicAPIKey, &c.APIKey)
	default:
		set(EnvGeminiAPIKey, &c.APIKey)
	}

	set(EnvModel, &c.Model)
	set(EnvSMTPHost, &c.Mail.Host)
	set(EnvEmailUser, &c.Mail.Username)
	set(EnvEmailPass, &c.Mail.Password)
	set(EnvEmailFrom, &c.Mail.From)
	set(EnvOutputDir, &c.DefaultOutputDir)
	set(EnvPromptsDir, &c.PromptsDir)
	set(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup(EnvSMTPPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewConfigurationError(errors.ErrCodeInvalidConfig,
				fmt.Sprintf("%s must be an integer", EnvSMTPPort), err)
		}
		c.Mail.Port = port
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Model == "" {
		if c.Provider == ProviderAnthropic {
			c.Model = DefaultAnthropicModel
		} else {
			c.Model = DefaultGeminiModel
		}
	}
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}
	if c.DefaultOutputDir == "" {
		c.DefaultOutputDir = DefaultOutputDir
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
}

// Validate checks settings that are wrong regardless of which tool runs.
// Missing secrets are not an error here; see RequireGenerator and RequireMailer.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return errors.NewConfigurationError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported provider %q", c.Provider), nil).
			WithContext("supported", []string{ProviderGemini, ProviderAnthropic})
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return errors.NewConfigurationError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid SMTP port %d", c.Mail.Port), nil)
	}
	return nil
}

// APIKeyEnv names the environment variable holding the selected provider's key
func (c *Config) APIKeyEnv() string {
	if c.Provider == ProviderAnthropic {
		return EnvAnthropicAPIKey
	}
	return EnvGeminiAPIKey
}

// RequireGenerator fails when the generative API key is absent
func (c *Config) RequireGenerator() error {
	if c.APIKey == "" {
		return errors.NewConfigurationError(errors.ErrCodeMissingSecret,
			fmt.Sprintf("%s is not set; the generative API is unavailable", c.APIKeyEnv()), nil).
			WithContext("setting", c.APIKeyEnv())
	}
	return nil
}

// RequireMailer fails when the SMTP credentials are absent
func (c *Config) RequireMailer() error {
	var missing []string
	if c.Mail.Username == "" {
		missing = append(missing, EnvEmailUser)
	}
	if c.Mail.Password == "" {
		missing = append(missing, EnvEmailPass)
	}
	if len(missing) > 0 {
		return errors.NewConfigurationError(errors.ErrCodeMissingSecret,
			fmt.Sprintf("%s not set; email sending is unavailable", strings.Join(missing, " and ")), nil).
			WithContext("setting", missing)
	}
	return nil
}

// Overrides are command-line values; empty fields leave the setting alone
type Overrides struct {
	Provider   string
	Model      string
	OutputDir  string
	PromptsDir string
	LogLevel   string
}

// Apply layers o over c. Switching provider reloads the API key from the
// new provider's environment variable and, without an explicit model, resets
// a default model to the new provider's default.
func (c *Config) Apply(o Overrides) error {
	return c.apply(o, os.LookupEnv)
}

func (c *Config) apply(o Overrides, lookup func(string) (string, bool)) error {
	if provider := strings.ToLower(strings.TrimSpace(o.Provider)); provider != "" && provider != c.Provider {
		c.Provider = provider
		c.APIKey = ""
		if v, ok := lookup(c.APIKeyEnv()); ok {
			c.APIKey = strings.TrimSpace(v)
		}
		if o.Model == "" && (c.Model == DefaultGeminiModel || c.Model == DefaultAnthropicModel) {
			c.Model = ""
		}
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.OutputDir != "" {
		c.DefaultOutputDir = o.OutputDir
	}
	if o.PromptsDir != "" {
		c.PromptsDir = o.PromptsDir
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}

	c.fillDefaults()
	return c.Validate()
}
