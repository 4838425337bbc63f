// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_20250514)

const anthropicMaxTokens = 8192

// AnthropicMessager is the part of the Anthropic client used here.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic requests JSON by forcing a single tool call whose input schema
// is the requested schema.
type Anthropic struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropic builds a backend authenticated with apiKey.
func NewAnthropic(apiKey, model string) *Anthropic {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicWith(&c.Messages, model)
}

// NewAnthropicWith builds a backend over an existing messages client.
func NewAnthropicWith(messages AnthropicMessager, model string) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{messages: messages, model: model}
}

// Provider returns the provider identifier.
func (a *Anthropic) Provider() string { return types.ProviderAnthropic }

// Model returns the model identifier.
func (a *Anthropic) Model() string { return a.model }

// Generate forces the model to call the req.Name tool and returns the tool
// input.
func (a *Anthropic) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	params := a.params(req.System, req.Prompt)
	if req.Schema != nil {
		js := req.Schema.JSON()
		tool := anthropic.ToolParam{
			Name:        req.Name,
			Description: anthropic.String(req.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: js["properties"],
				Required:   req.Schema.Required,
			},
		}
		params.Tools = []anthropic.ToolUnionParam{{OfTool: &tool}}
		params.ToolChoice = anthropic.ToolChoiceParamOfTool(req.Name)
	}

	msg, err := a.messages.New(ctx, params)
	if err != nil {
		return nil, anthropicError(err)
	}
	if req.Schema == nil {
		return json.RawMessage(textOf(msg)), nil
	}
	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == req.Name {
			return block.Input, nil
		}
	}
	return nil, nil
}

// GenerateText returns the concatenated text blocks of the reply.
func (a *Anthropic) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	msg, err := a.messages.New(ctx, a.params(system, prompt))
	if err != nil {
		return "", anthropicError(err)
	}
	return textOf(msg), nil
}

func (a *Anthropic) params(system, prompt string) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   anthropicMaxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return p
}

func textOf(msg *anthropic.Message) string {
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

func anthropicError(err error) error {
	pe := &ProviderError{Provider: types.ProviderAnthropic, Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}
