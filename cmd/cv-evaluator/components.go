// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/cv-evaluator/internal/document"
	"github.com/pdiddy/cv-evaluator/internal/report"
	"github.com/pdiddy/cv-evaluator/internal/store"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// readRecord loads a JSON record written by an earlier stage.
func readRecord(path string) (types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rec, err := types.ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rec, nil
}

// output returns the destination for --output, stdout when empty.
func output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}

// writeRecord writes v as JSON or YAML to --output.
func writeRecord(path, format string, v any) error {
	w, closeFn, err := output(path)
	if err != nil {
		return err
	}
	switch format {
	case report.FormatYAML, "yml":
		err = report.WriteYAML(w, v)
	case report.FormatJSON, "":
		err = report.WriteJSON(w, v)
	default:
		err = fmt.Errorf("unsupported format %q: use json or yaml", format)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func openStore() (*store.Store, error) {
	return store.Open(cfg.Store)
}

func newConverter() (document.Converter, error) {
	return document.NewConverter(cfg.Document)
}
