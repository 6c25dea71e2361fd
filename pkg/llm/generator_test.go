package llm

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
)

func TestNewWithoutKeyFailsAtCallTime(t *testing.T) {
	cfg := config.Default()

	gen, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), config.EnvGeminiAPIKey)
}

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderAnthropic
	cfg.APIKey = "sk-test"
	cfg.Model = "claude-test"

	gen, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicGenerator{}, gen)
}

func TestWithLogging(t *testing.T) {
	gen := WithLogging(&scriptedGenerator{replies: []string{"ok"}}, "gemini", logging.NewStructuredLogger("test"))

	out, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestWithCircuitBreaker(t *testing.T) {
	config := errors.DefaultCircuitBreakerConfig("gemini")
	config.MaxFailures = 2
	breaker := errors.NewCircuitBreaker(config)

	inner := &scriptedGenerator{err: generationError("gemini", fmt.Errorf("503"))}
	gen := WithCircuitBreaker(inner, breaker)

	for i := 0; i < 3; i++ {
		_, err := gen.Generate(context.Background(), "prompt")
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrExternalService))
	}
	assert.Len(t, inner.prompts, 2, "the third call is rejected without reaching the API")
	assert.Equal(t, errors.CircuitBreakerOpen, breaker.GetState())
}

func TestWithCircuitBreakerIgnoresMissingKey(t *testing.T) {
	breaker := errors.NewCircuitBreaker(errors.CircuitBreakerConfig{Name: "gemini", MaxFailures: 1})
	gen := WithCircuitBreaker(Unavailable(config.Default().RequireGenerator()), breaker)

	for i := 0; i < 3; i++ {
		_, err := gen.Generate(context.Background(), "prompt")
		assert.True(t, stderrors.Is(err, errors.ErrConfiguration))
	}
	assert.Equal(t, errors.CircuitBreakerClosed, breaker.GetState())
}

func TestAnthropicGenerator(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Deep "}, {"type": "text", "text": "thoughts"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`)
	}))
	defer srv.Close()

	gen := NewAnthropicGenerator("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	out, err := gen.Generate(context.Background(), "think about go")

	require.NoError(t, err)
	assert.Equal(t, "Deep thoughts", out)
	assert.True(t, bytes.Contains(body, []byte("think about go")))
}

func TestAnthropicGeneratorErrors(t *testing.T) {
	t.Run("http failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
		}))
		defer srv.Close()

		gen := NewAnthropicGenerator("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
		_, err := gen.Generate(context.Background(), "x")

		var se *errors.StructuredError
		require.True(t, stderrors.As(err, &se))
		assert.Equal(t, errors.ErrCodeGenerationFailed, se.Code)
	})

	t.Run("empty reply", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"m","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
		}))
		defer srv.Close()

		gen := NewAnthropicGenerator("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
		_, err := gen.Generate(context.Background(), "x")

		var se *errors.StructuredError
		require.True(t, stderrors.As(err, &se))
		assert.Equal(t, errors.ErrCodeEmptyGeneration, se.Code)
	})
}

func TestGeminiGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini says hi"}]}}]}`)
	}))
	defer srv.Close()

	gen, err := newGeminiGenerator(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	}, "gemini-test")
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "gemini says hi", out)
}
