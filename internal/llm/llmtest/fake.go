// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides a scripted text-understanding service for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pdiddy/cv-evaluator/internal/llm"
)

// Handler answers one schema-constrained request.
type Handler func(req llm.Request) (json.RawMessage, error)

// Fake answers requests by name. Unknown names fail the call.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	text     func(system, prompt string) (string, error)
	calls    []llm.Request
}

var (
	_ llm.Service = (*Fake)(nil)
	_ llm.Text    = (*Fake)(nil)
)

// New returns a Fake with no handlers.
func New() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// On registers h for requests named name.
func (f *Fake) On(name string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
	return f
}

// Respond registers a fixed JSON answer for requests named name.
func (f *Fake) Respond(name, body string) *Fake {
	return f.On(name, func(llm.Request) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	})
}

// Fail registers an error for requests named name.
func (f *Fake) Fail(name string, err error) *Fake {
	return f.On(name, func(llm.Request) (json.RawMessage, error) { return nil, err })
}

// OnText registers the free-text handler.
func (f *Fake) OnText(fn func(system, prompt string) (string, error)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = fn
	return f
}

// Generate implements llm.Service.
func (f *Fake) Generate(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	h, ok := f.handlers[req.Name]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("llmtest: no handler for %q", req.Name)
	}
	return h(req)
}

// GenerateText implements llm.Text.
func (f *Fake) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, llm.Request{Name: "text", System: system, Prompt: prompt})
	fn := f.text
	f.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("llmtest: no text handler")
	}
	return fn(system, prompt)
}

// Calls returns the requests received so far.
func (f *Fake) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.calls...)
}

// CallsNamed returns the requests named name.
func (f *Fake) CallsNamed(name string) []llm.Request {
	var out []llm.Request
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
