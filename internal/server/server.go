// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the evaluation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/document"
	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/internal/pipeline"
	"github.com/pdiddy/cv-evaluator/internal/store"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

const (
	uploadField    = "file"
	evictInterval  = 10 * time.Minute
	shutdownWindow = 30 * time.Second
)

// Runner evaluates document text.
type Runner interface {
	Run(ctx context.Context, text string, opts pipeline.RunOptions) (*pipeline.Result, error)
}

// Exporter returns persisted runs.
type Exporter interface {
	ExportJSON(ctx context.Context, runID string, w io.Writer) error
}

// Server is the HTTP surface of the pipeline.
type Server struct {
	cfg       types.ServerConfig
	runner    Runner
	converter document.Converter
	runs      Exporter
	metrics   *metrics.Metrics
	limits    *limiters
	proxies   proxies
	logger    *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithExporter serves persisted runs under /runs/{id}.
func WithExporter(e Exporter) Option {
	return func(s *Server) { s.runs = e }
}

// WithMetrics serves m under /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a server that evaluates uploads with runner. conv turns
// binary uploads into text and may be nil when only text uploads are
// expected.
func New(cfg types.ServerConfig, runner Runner, conv document.Converter, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		converter: conv,
		limits:    newLimiters(cfg.RequestsPerMinute, cfg.Burst),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrNop(s.logger).Named("server")

	var invalid []string
	s.proxies, invalid = parseProxies(cfg.TrustedProxies)
	if len(invalid) > 0 {
		s.logger.Warn("ignoring invalid trusted proxies", zap.Strings("entries", invalid))
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	process := s.rateLimit(s.limitBody(s.handleProcessCV))
	mux.HandleFunc("POST /process_cv", process)
	mux.HandleFunc("POST /process_cv/", process)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.runs != nil {
		mux.HandleFunc("GET /runs/{id}", s.handleRun)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.evictLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limits.evict(evictInterval); n > 0 {
				s.logger.Debug("evicted idle rate limiters", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := s.proxies.clientIP(r)
		if !s.limits.allow(ip) {
			s.logger.Info("rate limit exceeded", zap.String("client_ip", ip), zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) limitBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		}
		next(w, r)
	}
}

func (s *Server) handleProcessCV(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q upload: %v", uploadField, err))
		return
	}
	defer file.Close()

	log := s.logger.With(zap.String("document", header.Filename))
	text, err := document.Read(r.Context(), header.Filename, file, s.converter)
	if err != nil {
		if errors.Is(err, document.ErrNotDocument) {
			log.Info("rejected upload", zap.Error(err))
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error("reading upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error processing CV: "+err.Error())
		return
	}

	res, err := s.runner.Run(r.Context(), text, pipeline.RunOptions{Document: header.Filename})
	if err != nil {
		log.Error("processing CV failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error processing CV: "+err.Error())
		return
	}

	if res.RunID != "" {
		w.Header().Set("X-Run-ID", res.RunID)
	}
	writeJSON(w, http.StatusOK, res.Evaluation)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	w.Header().Set("Content-Type", "application/json")
	if err := s.runs.ExportJSON(r.Context(), id, w); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("exporting run failed", zap.String(logger.FieldRunID, id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
