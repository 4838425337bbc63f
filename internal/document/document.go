// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document turns an input CV into plain text. Text and Markdown are
// read as-is; PDF and office formats go through a Converter.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrNotDocument is returned for input that cannot be a readable document:
// a .pdf without the PDF signature, binary data posing as text, or no
// content at all.
var ErrNotDocument = errors.New("not a readable document")

// ErrNoConverter is returned when a binary document arrives and no
// converter is configured.
var ErrNoConverter = errors.New("no document converter configured")

var pdfMagic = []byte("%PDF-")

// textExts are read without conversion.
var textExts = map[string]bool{"": true, ".txt": true, ".md": true, ".markdown": true, ".text": true}

// Converter turns a binary document into text.
type Converter interface {
	Convert(ctx context.Context, r io.Reader) (string, error)
}

// Load reads the document at path.
func Load(ctx context.Context, path string, conv Converter) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()
	return Read(ctx, filepath.Base(path), f, conv)
}

// Read reads a document named name from r. The name's extension and the
// content's signature decide between reading text and converting.
func Read(ctx context.Context, name string, r io.Reader, conv Converter) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("%s: %w: empty", name, ErrNotDocument)
	}

	ext := strings.ToLower(filepath.Ext(name))
	isPDF := bytes.HasPrefix(data, pdfMagic)
	if ext == ".pdf" && !isPDF {
		return "", fmt.Errorf("%s: %w: missing PDF signature", name, ErrNotDocument)
	}

	if !isPDF && textExts[ext] {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: %w: not UTF-8 text", name, ErrNotDocument)
		}
		return string(data), nil
	}

	if conv == nil {
		return "", fmt.Errorf("%s: %w", name, ErrNoConverter)
	}
	text, err := conv.Convert(ctx, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("converting %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w: converter produced no text", name, ErrNotDocument)
	}
	return text, nil
}
