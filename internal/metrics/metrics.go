// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for lookups, LLM calls and
// pipeline stages. All methods are safe on a nil *Metrics, which records
// nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cv_evaluator"

// Lookup outcomes.
const (
	OutcomeMatched    = "matched"
	OutcomeNoTitle    = "no_title_match"
	OutcomeNoAuthor   = "no_author_match"
	OutcomeIndexError = "index_error"
)

// LLM call outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeError           = "error"
	OutcomeEmpty           = "empty"
	OutcomeSchemaViolation = "schema_violation"
	OutcomeBreakerOpen     = "breaker_open"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	lookups       *prometheus.CounterVec
	llmCalls      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Bibliographic lookups by index and outcome.",
		}, []string{"index", "outcome"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Text-understanding calls by request name and outcome.",
		}, []string{"name", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage durations.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.lookups, m.llmCalls, m.stageDuration, m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLookup counts one lookup outcome.
func (m *Metrics) ObserveLookup(index, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(index, outcome).Inc()
}

// ObserveLLMCall counts one text-understanding call.
func (m *Metrics) ObserveLLMCall(name, outcome string) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(name, outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun counts a finished pipeline run.
func (m *Metrics) ObserveRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// LLMCalls returns the counter for one call name and outcome. A nil Metrics
// returns an unregistered counter.
func (m *Metrics) LLMCalls(name, outcome string) prometheus.Counter {
	if m == nil {
		return discarded()
	}
	return m.llmCalls.WithLabelValues(name, outcome)
}

// Runs returns the counter for one run status. A nil Metrics returns an
// unregistered counter.
func (m *Metrics) Runs(status string) prometheus.Counter {
	if m == nil {
		return discarded()
	}
	return m.runs.WithLabelValues(status)
}

func discarded() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "discarded_total"})
}
