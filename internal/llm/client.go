// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/internal/schema"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// RetryBaseDelay is the first backoff interval. Tests shrink it.
var RetryBaseDelay = time.Second

// MaxRetryDelay caps a single backoff interval.
var MaxRetryDelay = 30 * time.Second

const defaultMaxRetries = 3

// Client adds retries with exponential backoff, an optional circuit breaker
// and response validation to a Backend.
type Client struct {
	backend    Backend
	maxRetries int
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

var (
	_ Service = (*Client)(nil)
	_ Text    = (*Client)(nil)
)

// NewClient wraps backend using the retry, timeout and breaker settings of cfg.
func NewClient(backend Backend, cfg types.LLMConfig, log *zap.Logger, m *metrics.Metrics) *Client {
	c := &Client{
		backend:    backend,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		logger:     logger.ForProvider(logger.OrNop(log), backend.Provider(), backend.Model()),
		metrics:    m,
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if cfg.CircuitBreaker.Enabled {
		c.breaker = newBreaker(backend.Provider(), cfg.CircuitBreaker, c.logger)
	}
	return c
}

func newBreaker(name string, cfg types.CircuitBreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "llm-" + name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// Backend returns the wrapped backend.
func (c *Client) Backend() Backend { return c.backend }

// Generate calls the backend and returns the JSON response once it parses
// and conforms to req.Schema. Empty or non-conforming responses are not
// retried.
func (c *Client) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	raw, err := c.execute(ctx, req.Name, func(ctx context.Context) ([]byte, error) {
		return c.backend.Generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(stripCodeFences(raw))
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		c.metrics.ObserveLLMCall(req.Name, metrics.OutcomeEmpty)
		return nil, fmt.Errorf("%s: %w", req.Name, ErrEmptyResponse)
	}

	if req.Schema != nil {
		if _, err := schema.ValidateJSON(req.Schema, raw); err != nil {
			c.metrics.ObserveLLMCall(req.Name, metrics.OutcomeSchemaViolation)
			c.logger.Debug("rejected response",
				zap.String("call", req.Name),
				zap.String("response", logger.Truncate(string(raw), 500)),
				zap.Error(err))
			return nil, fmt.Errorf("%s: %w: %v", req.Name, ErrSchemaViolation, err)
		}
	} else if !json.Valid(raw) {
		c.metrics.ObserveLLMCall(req.Name, metrics.OutcomeSchemaViolation)
		return nil, fmt.Errorf("%s: %w: not valid JSON", req.Name, ErrSchemaViolation)
	}

	c.metrics.ObserveLLMCall(req.Name, metrics.OutcomeOK)
	return json.RawMessage(raw), nil
}

// GenerateText calls the backend for free text. An all-whitespace reply is
// ErrEmptyResponse.
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	const name = "text"
	raw, err := c.execute(ctx, name, func(ctx context.Context) ([]byte, error) {
		s, err := c.backend.GenerateText(ctx, system, prompt)
		return []byte(s), err
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		c.metrics.ObserveLLMCall(name, metrics.OutcomeEmpty)
		return "", fmt.Errorf("%s: %w", name, ErrEmptyResponse)
	}
	c.metrics.ObserveLLMCall(name, metrics.OutcomeOK)
	return text, nil
}

func (c *Client) execute(ctx context.Context, name string, call func(context.Context) ([]byte, error)) ([]byte, error) {
	fn := func() ([]byte, error) { return c.withRetry(ctx, name, call) }

	var (
		out []byte
		err error
	)
	if c.breaker == nil {
		out, err = fn()
	} else {
		out, err = c.breaker.Execute(fn)
	}

	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ObserveLLMCall(name, metrics.OutcomeBreakerOpen)
		return nil, fmt.Errorf("%s: %s unavailable: %w", name, c.backend.Provider(), err)
	default:
		c.metrics.ObserveLLMCall(name, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
}

func (c *Client) withRetry(ctx context.Context, name string, call func(context.Context) ([]byte, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt)
			c.logger.Info("retrying LLM call",
				zap.String("call", name),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		start := time.Now()
		out, err := c.attempt(ctx, call)
		if err == nil {
			c.logger.Debug("LLM call completed",
				zap.String("call", name),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", len(out)))
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, call func(context.Context) ([]byte, error)) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return call(ctx)
}

// backoff returns an exponentially growing delay with jitter for the given
// retry attempt (1-based), capped at MaxRetryDelay.
func backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * RetryBaseDelay
	if d > MaxRetryDelay {
		d = MaxRetryDelay
	}
	if half := int64(d / 2); half > 0 {
		d = d/2 + time.Duration(rand.Int64N(half+1))
	}
	return d
}

// isRetryable reports whether err is a transient failure: a transport
// error, a per-call timeout, rate limiting or a server error.
func isRetryable(err error) bool {
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrSchemaViolation) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		switch pe.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return pe.StatusCode >= 520 && pe.StatusCode < 600
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// stripCodeFences removes a surrounding markdown code fence, which some
// models add even when asked for bare JSON.
func stripCodeFences(b []byte) []byte {
	s := strings.TrimSpace(string(b))
	if !strings.HasPrefix(s, "```") {
		return b
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
