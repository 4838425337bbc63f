// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich annotates CV publications with bibliographic data found by
// a lookup client. Lookups run strictly one after another through a pacing
// gate, and every publication keeps its original fields.
package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/pace"
	"github.com/pdiddy/cv-evaluator/internal/scholar"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Looker finds the bibliographic record for a title and author.
type Looker interface {
	Lookup(ctx context.Context, title, author string) scholar.Result
}

// Summary counts the lookup outcomes of one Enrich call.
type Summary struct {
	Total     int `json:"total" yaml:"total"`
	Matched   int `json:"matched" yaml:"matched"`
	Unmatched int `json:"unmatched" yaml:"unmatched"`
	// Skipped counts publications left untouched after cancellation.
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Stage is the enrichment stage.
type Stage struct {
	lookup Looker
	gate   pace.Gate
	logger *zap.Logger
}

// NewStage returns a stage that acquires gate before every lookup. A nil
// gate applies the default 500ms spacing on the wall clock.
func NewStage(lookup Looker, gate pace.Gate, log *zap.Logger) *Stage {
	if gate == nil {
		gate = pace.NewGate(500*time.Millisecond, nil)
	}
	return &Stage{
		lookup: lookup,
		gate:   gate,
		logger: logger.ForStage(log, "enrich"),
	}
}

// Enrich looks up every publication by title with author and returns the
// publications in input order. Matched publications are copies extended
// with the match fields; unmatched ones are unchanged copies. If ctx is
// cancelled the remaining publications pass through unchanged and ctx.Err()
// is returned together with the full-length result.
func (s *Stage) Enrich(ctx context.Context, publications []types.Record, author string) ([]types.Record, Summary, error) {
	out := make([]types.Record, len(publications))
	sum := Summary{Total: len(publications)}

	for i, pub := range publications {
		if err := s.gate.Wait(ctx); err != nil {
			for j := i; j < len(publications); j++ {
				out[j] = publications[j].Clone()
			}
			sum.Skipped = len(publications) - i
			s.logger.Warn("enrichment interrupted", zap.Int("remaining", sum.Skipped), zap.Error(err))
			return out, sum, err
		}

		title := pub.String("title")
		res := s.lookup.Lookup(ctx, title, author)
		if !res.Found() {
			out[i] = pub.Clone()
			sum.Unmatched++
			s.logger.Info("no match", zap.String("title", title), zap.String("reason", res.Reason))
			continue
		}

		out[i] = types.Merge(pub, res.Match.Record(), types.EnrichmentKeys)
		sum.Matched++
		s.logger.Info("match found",
			zap.String("title", title),
			zap.String("matched_title", res.Match.Title),
			zap.String("author", res.Match.Author))
	}

	return out, sum, nil
}

// EnrichCV enriches cv's publications using cv's name as the author and
// returns a copy of cv with the enriched list. Non-object entries of the
// publication list are kept in place.
func (s *Stage) EnrichCV(ctx context.Context, cv types.Record) (types.Record, Summary, error) {
	out := cv.Clone()
	raw, ok := out[types.KeyPublications].([]any)
	if !ok || len(raw) == 0 {
		return out, Summary{}, ctx.Err()
	}

	var (
		positions []int
		pubs      []types.Record
	)
	for i, v := range raw {
		switch r := v.(type) {
		case types.Record:
			positions = append(positions, i)
			pubs = append(pubs, r)
		case map[string]any:
			positions = append(positions, i)
			pubs = append(pubs, types.Record(r))
		}
	}

	enriched, sum, err := s.Enrich(ctx, pubs, cv.String(types.KeyName))
	for k, pos := range positions {
		raw[pos] = enriched[k]
	}
	out[types.KeyPublications] = raw
	return out, sum, err
}
