// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the evaluation stages: extraction, enrichment,
// labeling, rating and the summary. Each stage fully consumes the record
// before the next starts, and every stage output is persisted as a snapshot
// so a later run can resume from it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/enrich"
	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/internal/report"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Snapshot names, in pipeline order.
const (
	StageCVData     = "cv_data"
	StageEnriched   = "enriched_cv_data"
	StageLabeled    = "further_enriched_cv_data"
	StageEvaluation = "evaluation"
	StageSummary    = "summary"
)

// Run statuses reported to metrics.
const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// ErrCannotResume is returned by RunFrom for a stage with nothing after it
// to recompute from a record.
var ErrCannotResume = errors.New("cannot resume from stage")

// Extractor turns document text into the initial record.
type Extractor interface {
	Run(ctx context.Context, text string) (types.Record, error)
}

// Enricher adds bibliographic data to the record's publications.
type Enricher interface {
	EnrichCV(ctx context.Context, cv types.Record) (types.Record, enrich.Summary, error)
}

// Labeler adds labels and research-field analysis, and writes insights.
type Labeler interface {
	Analyze(ctx context.Context, cv types.Record) (types.Record, error)
	Insights(ctx context.Context, cv types.Record) (string, error)
}

// Rater rates every category and derives the overall assessment.
type Rater interface {
	EvaluateAll(ctx context.Context, cv types.Record) (types.Evaluation, error)
}

// Snapshotter persists stage outputs of a run.
type Snapshotter interface {
	StartRun(ctx context.Context, document, parent string) (string, error)
	SaveSnapshot(ctx context.Context, runID, stage string, v any) error
	FinishRun(ctx context.Context, runID string, overall types.Rating, runErr error) error
}

// Result holds every stage output of a completed run.
type Result struct {
	RunID      string           `json:"run_id,omitempty"`
	CVData     types.Record     `json:"cv_data"`
	Enriched   types.Record     `json:"enriched_cv_data"`
	Labeled    types.Record     `json:"further_enriched_cv_data"`
	Enrichment enrich.Summary   `json:"enrichment"`
	Evaluation types.Evaluation `json:"evaluation"`
	Insights   string           `json:"insights"`
	Summary    string           `json:"summary"`
}

// Pipeline runs the stages in order.
type Pipeline struct {
	extractor Extractor
	enricher  Enricher
	labeler   Labeler
	rater     Rater

	snapshots Snapshotter
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSnapshotter persists every stage output through s.
func WithSnapshotter(s Snapshotter) Option {
	return func(p *Pipeline) { p.snapshots = s }
}

// WithMetrics records stage durations and run outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New returns a pipeline over the given stages.
func New(ex Extractor, en Enricher, la Labeler, ra Rater, opts ...Option) *Pipeline {
	p := &Pipeline{extractor: ex, enricher: en, labeler: la, rater: ra}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.ForStage(p.logger, "pipeline")
	return p
}

// RunOptions describes the source of a run for the run record.
type RunOptions struct {
	// Document names the input, usually its file name.
	Document string

	// Parent is the run a resumed run branched from.
	Parent string
}

// Run evaluates document text from the beginning. Any extraction, labeling
// or rating failure aborts the run with a wrapped error and no result.
func (p *Pipeline) Run(ctx context.Context, text string, opts RunOptions) (*Result, error) {
	return p.run(ctx, opts, func(r *runner) error {
		cv, err := r.extract(ctx, text)
		if err != nil {
			return err
		}
		return r.fromCVData(ctx, cv)
	})
}

// RunFrom starts a new run that reuses the persisted output of stage and
// recomputes every later stage. record is the stage's snapshot.
func (p *Pipeline) RunFrom(ctx context.Context, stage string, record types.Record, opts RunOptions) (*Result, error) {
	var resume func(*runner) error
	switch stage {
	case StageCVData:
		resume = func(r *runner) error {
			r.res.CVData = record.Clone()
			return r.fromCVData(ctx, r.res.CVData)
		}
	case StageEnriched:
		resume = func(r *runner) error {
			r.res.Enriched = record.Clone()
			return r.fromEnriched(ctx, r.res.Enriched)
		}
	case StageLabeled:
		resume = func(r *runner) error {
			r.res.Labeled = record.Clone()
			return r.fromLabeled(ctx, r.res.Labeled)
		}
	default:
		return nil, fmt.Errorf("%w %q: want %s, %s or %s", ErrCannotResume, stage, StageCVData, StageEnriched, StageLabeled)
	}
	if record == nil {
		return nil, fmt.Errorf("resuming from %s: empty record", stage)
	}
	p.logger.Info("resuming", zap.String("from", stage), zap.String("parent", opts.Parent))
	return p.run(ctx, opts, resume)
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, body func(*runner) error) (*Result, error) {
	r := &runner{p: p, res: &Result{}, log: p.logger}
	if p.snapshots != nil {
		id, err := p.snapshots.StartRun(ctx, opts.Document, opts.Parent)
		if err != nil {
			return nil, fmt.Errorf("starting run: %w", err)
		}
		r.res.RunID = id
		r.log = p.logger.With(zap.String(logger.FieldRunID, id))
	}
	r.log.Info("run started", zap.String("document", opts.Document))

	err := body(r)
	p.finish(r, err)
	if err != nil {
		return nil, err
	}
	return r.res, nil
}

func (p *Pipeline) finish(r *runner, runErr error) {
	status := statusSucceeded
	if runErr != nil {
		status = statusFailed
	}
	p.metrics.ObserveRun(status)

	if p.snapshots != nil {
		// The run outcome is recorded even when the caller's context is done.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.snapshots.FinishRun(ctx, r.res.RunID, r.res.Evaluation.Assessment.Overall, runErr); err != nil {
			r.log.Warn("recording run outcome failed", zap.Error(err))
		}
	}

	if runErr != nil {
		r.log.Error("run failed", zap.Error(runErr))
		return
	}
	r.log.Info("run complete", zap.String("overall", string(r.res.Evaluation.Assessment.Overall)))
}

// runner threads one record through the stages.
type runner struct {
	p   *Pipeline
	res *Result
	log *zap.Logger
}

func (r *runner) extract(ctx context.Context, text string) (types.Record, error) {
	var cv types.Record
	err := r.stage(ctx, StageCVData, func() (any, error) {
		var err error
		cv, err = r.p.extractor.Run(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("extraction: %w", err)
		}
		r.res.CVData = cv
		return cv, nil
	})
	return cv, err
}

func (r *runner) fromCVData(ctx context.Context, cv types.Record) error {
	var enriched types.Record
	err := r.stage(ctx, StageEnriched, func() (any, error) {
		var (
			sum enrich.Summary
			err error
		)
		enriched, sum, err = r.p.enricher.EnrichCV(ctx, cv)
		if err != nil {
			return nil, fmt.Errorf("enrichment: %w", err)
		}
		r.res.Enriched, r.res.Enrichment = enriched, sum
		r.log.Info("enrichment summary",
			zap.Int("total", sum.Total),
			zap.Int("matched", sum.Matched),
			zap.Int("unmatched", sum.Unmatched))
		return enriched, nil
	})
	if err != nil {
		return err
	}
	return r.fromEnriched(ctx, enriched)
}

func (r *runner) fromEnriched(ctx context.Context, enriched types.Record) error {
	var labeled types.Record
	err := r.stage(ctx, StageLabeled, func() (any, error) {
		var err error
		labeled, err = r.p.labeler.Analyze(ctx, enriched)
		if err != nil {
			return nil, fmt.Errorf("labeling: %w", err)
		}
		r.res.Labeled = labeled
		return labeled, nil
	})
	if err != nil {
		return err
	}
	return r.fromLabeled(ctx, labeled)
}

func (r *runner) fromLabeled(ctx context.Context, labeled types.Record) error {
	insights, err := r.p.labeler.Insights(ctx, labeled)
	if err != nil {
		return fmt.Errorf("labeling: %w", err)
	}
	r.res.Insights = insights

	err = r.stage(ctx, StageEvaluation, func() (any, error) {
		eval, err := r.p.rater.EvaluateAll(ctx, labeled)
		if err != nil {
			return nil, fmt.Errorf("rating: %w", err)
		}
		r.res.Evaluation = eval
		return eval, nil
	})
	if err != nil {
		return err
	}

	return r.stage(ctx, StageSummary, func() (any, error) {
		md, err := report.Markdown(r.res.Evaluation, insights)
		if err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		r.res.Summary = md
		return md, nil
	})
}

// stage times fn, logs its boundaries and persists its output.
func (r *runner) stage(ctx context.Context, name string, fn func() (any, error)) error {
	log := r.log.With(zap.String("step", name))
	log.Info("stage started")
	start := time.Now()

	out, err := fn()
	r.p.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		return err
	}

	if r.p.snapshots != nil {
		if err := r.p.snapshots.SaveSnapshot(ctx, r.res.RunID, name, out); err != nil {
			return fmt.Errorf("saving %s: %w", name, err)
		}
	}
	log.Info("stage complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}
