package container

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/mailer"
)

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string) (string, error) { return "generated", nil }

type stubSender struct{}

func (stubSender) Send(context.Context, *mailer.EmailMessage) error { return nil }

type refusingSender struct{ calls int }

func (r *refusingSender) Send(context.Context, *mailer.EmailMessage) error {
	r.calls++
	return errors.NewExternalServiceError(errors.ErrCodeMailSendFailed, "failed to send email", nil)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.DefaultOutputDir = filepath.Join(t.TempDir(), "output")
	cfg.PromptsDir = t.TempDir()
	cfg.LogLevel = "ERROR"
	return cfg
}

func TestNewWiresEveryComponent(t *testing.T) {
	c, err := New(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Server())
	assert.NotNil(t, c.Prompts())
	assert.Equal(t, "ERROR", c.Logging().LogLevel())

	var names []string
	for _, def := range c.Tools().ListTools() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"generate-thinking", "send-email", "analyze-data"}, names)
}

func TestMissingSecretsFailOnlyTheToolsThatNeedThem(t *testing.T) {
	c, err := New(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Tools().ExecuteTool(context.Background(), "generate-thinking", map[string]interface{}{"prompt": "p"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), config.EnvGeminiAPIKey)

	_, err = c.Tools().ExecuteTool(context.Background(), "send-email", map[string]interface{}{
		"to": "a@example.com", "subjectPrompt": "s", "text": "t",
	})
	assert.True(t, stderrors.Is(err, errors.ErrConfiguration))

	result, err := c.Tools().ExecuteTool(context.Background(), "analyze-data", map[string]interface{}{
		"fileData":     "YSxiCjEseAoyLHkK",
		"fileName":     "a.csv",
		"analysisType": "basic",
	})
	require.NoError(t, err, "basic analysis needs no secrets")
	assert.Contains(t, result.Content[0].Text, "Rows: 2")
}

func TestOverrides(t *testing.T) {
	c, err := NewWithOverrides(testConfig(t), Overrides{Generator: stubGenerator{}, Sender: stubSender{}})
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Tools().ExecuteTool(context.Background(), "generate-thinking", map[string]interface{}{"prompt": "p"})
	require.NoError(t, err)
	assert.Contains(t, result.Content[0].Text, "generated")
}

func TestAnthropicProviderWires(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider = "anthropic"
	cfg.APIKey = "sk-test"

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()
}

func TestSMTPCircuitBreakerOpens(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mail.Username = "ops@example.com"
	cfg.Mail.Password = "secret"
	cfg.Mail.From = "ops@example.com"

	sender := &refusingSender{}
	c, err := NewWithOverrides(cfg, Overrides{Generator: stubGenerator{}, Sender: sender})
	require.NoError(t, err)
	defer c.Close()

	args := map[string]interface{}{"to": "ada@example.com", "subjectPrompt": "status", "text": "All good."}
	limit := errors.DefaultCircuitBreakerConfig(breakerSMTP).MaxFailures

	var last string
	for i := 0; i <= limit; i++ {
		result, err := c.Tools().ExecuteTool(context.Background(), "send-email", args)
		require.NoError(t, err)
		last = result.Content[0].Text
	}

	assert.Equal(t, limit, sender.calls, "the relay is not contacted once the breaker is open")
	assert.Contains(t, last, "Failed to send email")
	assert.Contains(t, last, errors.ErrCodeCircuitOpen)
}
