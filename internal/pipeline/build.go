// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/enrich"
	"github.com/pdiddy/cv-evaluator/internal/evaluate"
	"github.com/pdiddy/cv-evaluator/internal/extract"
	"github.com/pdiddy/cv-evaluator/internal/label"
	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/internal/pace"
	"github.com/pdiddy/cv-evaluator/internal/scholar"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// FromConfig wires the production stages described by cfg: one LLM client
// shared by extraction, labeling and rating, and a paced lookup client for
// enrichment. snapshots may be nil.
func FromConfig(ctx context.Context, cfg types.Config, snapshots Snapshotter, log *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	client, err := llm.New(ctx, cfg.LLM, log, m)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	lookup, err := scholar.NewClientFromConfig(cfg.Lookup, log, m)
	if err != nil {
		return nil, fmt.Errorf("creating lookup client: %w", err)
	}

	opts := []Option{WithMetrics(m), WithLogger(log)}
	if snapshots != nil {
		opts = append(opts, WithSnapshotter(snapshots))
	}
	return New(
		extract.NewStage(client, log),
		enrich.NewStage(lookup, pace.NewGate(cfg.Lookup.RequestInterval, nil), log),
		label.NewStage(client, client, log),
		evaluate.NewRater(client, log),
		opts...,
	), nil
}
