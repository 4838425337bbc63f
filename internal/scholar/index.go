// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar looks up publications in a bibliographic index and decides,
// with fuzzy title and author matching, whether a result is the paper named
// on a CV.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// ErrMissingResults is returned by an Index when a response body lacks the
// expected result collection.
var ErrMissingResults = errors.New("response lacks result collection")

// Index is a paper-search backend queried by free text.
type Index interface {
	// Name identifies the index in logs, metrics and enriched records.
	Name() string

	// Search returns at most limit candidates in the order the index ranks
	// them.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Candidate is one paper returned by an index. It only lives for the
// duration of a lookup.
type Candidate struct {
	PaperID       string
	Title         string
	DOI           string
	Year          *int
	CitationCount *int
	Venue         string
	VenueID       string
	VenueName     string
	VenueType     string
	VenueURL      string
	Authors       []string
}

// StatusError reports a non-2xx index response.
type StatusError struct {
	Index      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Index, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Index, e.StatusCode, e.Body)
}

// statusError drains up to 512 bytes of resp for the error message.
func statusError(index string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Index:      index,
		StatusCode: resp.StatusCode,
		Body:       logger.Truncate(strings.ReplaceAll(string(snippet), "\n", " "), 200),
	}
}

// NewIndex builds the index selected by cfg.Index. A missing Semantic
// Scholar API key is not an error: requests go out unauthenticated and a
// warning is logged once here.
func NewIndex(cfg types.LookupConfig, client *http.Client, log *zap.Logger) (Index, error) {
	log = logger.OrNop(log)
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Index {
	case "", types.IndexSemanticScholar:
		if cfg.SemanticScholarAPIKey == "" {
			log.Warn("no Semantic Scholar API key configured, using unauthenticated requests")
		}
		return &SemanticScholar{
			Client:     client,
			APIKey:     cfg.SemanticScholarAPIKey,
			UserAgent:  cfg.UserAgent,
			MaxRetries: cfg.MaxRetries,
			Logger:     log,
		}, nil
	case types.IndexOpenAlex:
		return &OpenAlex{
			Client:     client,
			Email:      cfg.OpenAlexEmail,
			UserAgent:  cfg.UserAgent,
			MaxRetries: cfg.MaxRetries,
			Logger:     log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown bibliographic index %q", cfg.Index)
	}
}
