// Package llm wraps the generative-language APIs behind a single Generate call.
package llm

import (
	"context"
	"strings"
	"time"

	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/logging"
)

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator for the configured provider. When the provider's
// API key is missing it returns a generator that fails every call with the
// configuration error, so tools that do not need generation keep working.
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	if err := cfg.RequireGenerator(); err != nil {
		return Unavailable(err), nil
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicGenerator(cfg.APIKey, cfg.Model), nil
	default:
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
	}
}

type unavailable struct {
	err error
}

// Unavailable returns a Generator whose calls all fail with err
func Unavailable(err error) Generator {
	return unavailable{err: err}
}

func (u unavailable) Generate(context.Context, string) (string, error) {
	return "", u.err
}

// loggedGenerator records every call as an external call
type loggedGenerator struct {
	next    Generator
	service string
	logger  *logging.StructuredLogger
}

// WithLogging wraps g so each call is logged with its duration and outcome
func WithLogging(g Generator, service string, logger *logging.StructuredLogger) Generator {
	return &loggedGenerator{next: g, service: service, logger: logger}
}

func (l *loggedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := l.next.Generate(ctx, prompt)
	l.logger.WithContext("prompt_chars", len(prompt)).
		WithContext("output_chars", len(out)).
		LogExternalCall(l.service, "generate", time.Since(start), err)
	return out, err
}

func generationError(provider string, err error) error {
	return errors.NewExternalServiceError(errors.ErrCodeGenerationFailed,
		"generative API call failed", err).
		WithContext("provider", provider)
}

func checkOutput(provider, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.NewExternalServiceError(errors.ErrCodeEmptyGeneration,
			"generative API returned no text", nil).
			WithContext("provider", provider)
	}
	return text, nil
}

type guardedGenerator struct {
	next    Generator
	breaker *errors.CircuitBreaker
}

// WithCircuitBreaker routes every call through breaker so a failing API is
// not called again until the breaker lets a trial call through
func WithCircuitBreaker(g Generator, breaker *errors.CircuitBreaker) Generator {
	return &guardedGenerator{next: g, breaker: breaker}
}

func (g *guardedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.breaker.Execute(func() error {
		var err error
		out, err = g.next.Generate(ctx, prompt)
		return err
	})
	return out, err
}
