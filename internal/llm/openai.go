// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// ChatCompleter is the part of the OpenAI client used here.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI requests JSON through the chat completions structured-output
// response format.
type OpenAI struct {
	completions ChatCompleter
	model       string
}

// NewOpenAI builds a backend authenticated with apiKey.
func NewOpenAI(apiKey, model string) *OpenAI {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAIWith(&c.Chat.Completions, model)
}

// NewOpenAIWith builds a backend over an existing completions client.
func NewOpenAIWith(completions ChatCompleter, model string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{completions: completions, model: model}
}

// Provider returns the provider identifier.
func (o *OpenAI) Provider() string { return types.ProviderOpenAI }

// Model returns the model identifier.
func (o *OpenAI) Model() string { return o.model }

// Generate asks for JSON matching req.Schema.
func (o *OpenAI) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	params := o.params(req.System, req.Prompt)
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Name,
					Description: openai.String(req.Description),
					Schema:      req.Schema.JSON(),
					Strict:      openai.Bool(false),
				},
			},
		}
	}

	content, err := o.complete(ctx, params)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(content), nil
}

// GenerateText asks for free text.
func (o *OpenAI) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return o.complete(ctx, o.params(system, prompt))
}

func (o *OpenAI) params(system, prompt string) openai.ChatCompletionNewParams {
	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(prompt))
	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	}
}

func (o *OpenAI) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return "", openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: model refused: %s", ErrEmptyResponse, msg.Refusal)
	}
	return msg.Content, nil
}

func openAIError(err error) error {
	pe := &ProviderError{Provider: types.ProviderOpenAI, Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}
