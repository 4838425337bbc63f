// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls a text-understanding service for schema-constrained
// JSON and for free text. Provider backends stay thin; Client adds retries,
// a circuit breaker and response validation on top of any of them.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/internal/schema"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

var (
	// ErrEmptyResponse means the service answered without content.
	ErrEmptyResponse = errors.New("empty response from text-understanding service")

	// ErrSchemaViolation means the response does not conform to the
	// requested schema.
	ErrSchemaViolation = errors.New("response violates requested schema")

	// ErrMissingAPIKey means the selected provider has no credential.
	ErrMissingAPIKey = errors.New("no API key configured for LLM provider")
)

// Request is one schema-constrained call.
type Request struct {
	// Name identifies the call; backends use it as the tool or schema name.
	Name        string
	Description string
	System      string
	Prompt      string
	Schema      *schema.Schema
}

// Service returns JSON conforming to the request schema.
type Service interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Text returns free text.
type Text interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Backend is a provider implementation.
type Backend interface {
	Service
	Text
	Provider() string
	Model() string
}

// ProviderError carries the HTTP status of a failed provider call. A zero
// StatusCode means the request did not get a response.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// New builds the backend selected by cfg.Provider and wraps it in a Client.
func New(ctx context.Context, cfg types.LLMConfig, log *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}

	var (
		backend Backend
		err     error
	)
	switch cfg.Provider {
	case "", types.ProviderOpenAI:
		backend = NewOpenAI(cfg.APIKey, cfg.Model)
	case types.ProviderAnthropic:
		backend = NewAnthropic(cfg.APIKey, cfg.Model)
	case types.ProviderGemini:
		backend, err = NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}

	return NewClient(backend, cfg, log, m), nil
}
