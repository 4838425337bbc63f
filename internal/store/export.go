// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Export is a run with all of its snapshots decoded.
type Export struct {
	Run       Run            `json:"run" yaml:"run"`
	Snapshots map[string]any `json:"snapshots" yaml:"snapshots"`
}

// ExportRun collects the run and its snapshots.
func (s *Store) ExportRun(ctx context.Context, runID string) (Export, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return Export{}, err
	}
	stages, err := s.Stages(ctx, runID)
	if err != nil {
		return Export{}, err
	}

	exp := Export{Run: run, Snapshots: make(map[string]any, len(stages))}
	for _, stage := range stages {
		raw, err := s.Snapshot(ctx, runID, stage)
		if err != nil {
			return Export{}, err
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return Export{}, fmt.Errorf("decoding %s snapshot: %w", stage, err)
		}
		exp.Snapshots[stage] = v
	}
	return exp, nil
}

// ExportYAML writes the run export as YAML.
func (s *Store) ExportYAML(ctx context.Context, runID string, w io.Writer) error {
	exp, err := s.ExportRun(ctx, runID)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the run export as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, runID string, w io.Writer) error {
	exp, err := s.ExportRun(ctx, runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}
