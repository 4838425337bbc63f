// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cv-evaluator/internal/container"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

type fakeConverter struct {
	calls  int
	output string
	err    error
}

func (f *fakeConverter) Convert(_ context.Context, r io.Reader) (string, error) {
	f.calls++
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return f.output, f.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		conv      *fakeConverter
		want      string
		wantErr   error
		wantCalls int
	}{
		{name: "markdown read as-is", file: "cv.md", content: "# Yann LeCun\n", conv: &fakeConverter{}, want: "# Yann LeCun\n"},
		{name: "text read as-is", file: "cv.txt", content: "Yann LeCun", conv: &fakeConverter{}, want: "Yann LeCun"},
		{name: "pdf converted", file: "cv.pdf", content: "%PDF-1.7\n...", conv: &fakeConverter{output: "Yann LeCun"}, want: "Yann LeCun", wantCalls: 1},
		{name: "pdf signature without extension", file: "upload", content: "%PDF-1.4", conv: &fakeConverter{output: "text"}, want: "text", wantCalls: 1},
		{name: "docx converted", file: "cv.docx", content: "PK\x03\x04", conv: &fakeConverter{output: "text"}, want: "text", wantCalls: 1},
		{name: "fake pdf", file: "cv.pdf", content: "hello", conv: &fakeConverter{}, wantErr: ErrNotDocument},
		{name: "empty", file: "cv.txt", content: " \n", conv: &fakeConverter{}, wantErr: ErrNotDocument},
		{name: "binary text", file: "cv.txt", content: "\xff\xfe\x00", conv: &fakeConverter{}, wantErr: ErrNotDocument},
		{name: "converter yields nothing", file: "cv.pdf", content: "%PDF-1.7", conv: &fakeConverter{output: "  "}, wantErr: ErrNotDocument, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			got, err := Load(context.Background(), path, tt.conv)
			assert.Equal(t, tt.wantCalls, tt.conv.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadWithoutConverter(t *testing.T) {
	_, err := Read(context.Background(), "cv.pdf", strings.NewReader("%PDF-1.7"), nil)
	assert.ErrorIs(t, err, ErrNoConverter)

	text, err := Read(context.Background(), "cv.md", strings.NewReader("ok"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type fakeRuntime struct {
	imageErr error
	output   string
}

func (f *fakeRuntime) Name() string                              { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool            { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return f.imageErr }

func (f *fakeRuntime) Run(_ context.Context, _ string, stdin io.Reader, stdout io.Writer) error {
	io.Copy(io.Discard, stdin)
	_, err := io.WriteString(stdout, f.output)
	return err
}

func TestMarkitdownConverter(t *testing.T) {
	_, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{imageErr: errors.New("missing")})
	assert.Error(t, err)

	conv, err := NewMarkitdownConverter(context.Background(), &fakeRuntime{output: "# CV"})
	require.NoError(t, err)
	text, err := conv.Convert(context.Background(), strings.NewReader("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, "# CV", text)
}

func TestLazyConverterDetectsOnce(t *testing.T) {
	detections := 0
	l := &lazyConverter{detect: func(context.Context) (container.Runtime, error) {
		detections++
		return &fakeRuntime{output: "text"}, nil
	}}
	for range 2 {
		_, err := l.Convert(context.Background(), strings.NewReader("%PDF-"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, detections)

	failing := &lazyConverter{detect: func(context.Context) (container.Runtime, error) {
		return nil, errors.New("no runtime")
	}}
	_, err := failing.Convert(context.Background(), strings.NewReader("%PDF-"))
	assert.Error(t, err)
}

func TestNewConverter(t *testing.T) {
	conv, err := NewConverter(types.DocumentConfig{Converter: ConverterText})
	require.NoError(t, err)
	assert.Nil(t, conv)

	conv, err = NewConverter(types.DocumentConfig{})
	require.NoError(t, err)
	assert.NotNil(t, conv)

	_, err = NewConverter(types.DocumentConfig{Converter: "grobid"})
	assert.Error(t, err)
}
