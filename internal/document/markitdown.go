// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/cv-evaluator/internal/container"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Converter names.
const (
	ConverterMarkitdown = "markitdown"
	ConverterText       = "text"
)

// ImageMarkitdown is the container image used for conversion.
var ImageMarkitdown = "markitdown:latest"

// MarkitdownConverter converts documents by piping them through the
// markitdown container image.
type MarkitdownConverter struct {
	runtime container.Runtime
}

// NewMarkitdownConverter verifies that the markitdown image exists in rt.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime) (*MarkitdownConverter, error) {
	if err := rt.ImageExists(ctx, ImageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt}, nil
}

// Convert pipes r through the container and returns its Markdown output.
func (m *MarkitdownConverter) Convert(ctx context.Context, r io.Reader) (string, error) {
	var out bytes.Buffer
	if err := m.runtime.Run(ctx, ImageMarkitdown, r, &out); err != nil {
		return "", fmt.Errorf("markitdown: %w", err)
	}
	return out.String(), nil
}

// lazyConverter detects the container runtime on first use, so text-only
// runs never need one.
type lazyConverter struct {
	detect func(context.Context) (container.Runtime, error)

	mu   sync.Mutex
	conv *MarkitdownConverter
}

func (l *lazyConverter) Convert(ctx context.Context, r io.Reader) (string, error) {
	l.mu.Lock()
	if l.conv == nil {
		rt, err := l.detect(ctx)
		if err != nil {
			l.mu.Unlock()
			return "", err
		}
		conv, err := NewMarkitdownConverter(ctx, rt)
		if err != nil {
			l.mu.Unlock()
			return "", err
		}
		l.conv = conv
	}
	conv := l.conv
	l.mu.Unlock()
	return conv.Convert(ctx, r)
}

// NewConverter returns the converter selected by cfg. The "text" converter
// is nil: binary documents then fail with ErrNoConverter.
func NewConverter(cfg types.DocumentConfig) (Converter, error) {
	switch cfg.Converter {
	case "", ConverterMarkitdown:
		return &lazyConverter{detect: container.DetectRuntime}, nil
	case ConverterText:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown document converter %q", cfg.Converter)
	}
}
