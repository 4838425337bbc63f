// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the part of the Gemini client used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini requests JSON through a response schema.
type Gemini struct {
	models ContentGenerator
	model  string
}

// NewGemini builds a backend for the Gemini API authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return NewGeminiWith(client.Models, model), nil
}

// NewGeminiWith builds a backend over an existing models client.
func NewGeminiWith(models ContentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model}
}

// Provider returns the provider identifier.
func (g *Gemini) Provider() string { return types.ProviderGemini }

// Model returns the model identifier.
func (g *Gemini) Model() string { return g.model }

// Generate asks for application/json output constrained by req.Schema.
func (g *Gemini) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	cfg := g.config(req.System)
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = req.Schema.Genai()
	}
	text, err := g.generate(ctx, req.Prompt, cfg)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(text), nil
}

// GenerateText asks for free text.
func (g *Gemini) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return g.generate(ctx, prompt, g.config(system))
}

func (g *Gemini) config(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", geminiError(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

func geminiError(err error) error {
	pe := &ProviderError{Provider: types.ProviderGemini, Err: err}
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.Code
	case errors.As(err, &apiErrPtr):
		pe.StatusCode = apiErrPtr.Code
	}
	return pe
}
