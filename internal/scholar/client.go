// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/fuzzy"
	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// NotFound reasons.
const (
	ReasonEmptyTitle    = "empty title"
	ReasonNoTitleMatch  = "no title match"
	ReasonNoAuthorMatch = "no validated author"
	reasonIndexError    = "index error: "
)

// Match is the normalized record of an accepted candidate.
type Match struct {
	Title         string
	PaperID       string
	DOI           string
	Year          *int
	CitationCount *int
	Venue         string
	VenueID       string
	VenueName     string
	VenueType     string
	VenueURL      string
	// Author is the candidate author that passed validation.
	Author string
	// Source names the index the match came from.
	Source string
}

// Record renders the match with the enrichment keys. Missing values are
// null so that they never overwrite what a publication already carries.
func (m *Match) Record() types.Record {
	return types.Record{
		"matched_title":        nonEmpty(m.Title),
		"paper_id":             nonEmpty(m.PaperID),
		"doi":                  nonEmpty(m.DOI),
		"year":                 intOrNil(m.Year),
		"citation_count":       intOrNil(m.CitationCount),
		"venue":                nonEmpty(m.Venue),
		"venue_id":             nonEmpty(m.VenueID),
		"venue_name":           nonEmpty(m.VenueName),
		"venue_type":           nonEmpty(m.VenueType),
		"venue_url":            nonEmpty(m.VenueURL),
		"bibliographic_source": nonEmpty(m.Source),
	}
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// Result is the outcome of a lookup: a match, or NotFound with the reason.
type Result struct {
	Match  *Match
	Reason string
}

// Found reports whether the lookup produced a match.
func (r Result) Found() bool { return r.Match != nil }

// Client matches CV publications against an Index.
type Client struct {
	index          Index
	limit          int
	titleThreshold int
	policy         fuzzy.Policy
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithLimit sets how many candidates one search requests.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithTitleThreshold sets the minimum title similarity.
func WithTitleThreshold(t int) Option {
	return func(c *Client) {
		if t > 0 {
			c.titleThreshold = t
		}
	}
}

// WithPolicy sets the author validation policy.
func WithPolicy(p fuzzy.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.OrNop(l) }
}

// WithMetrics records lookup outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient returns a Client over index with the default limit of 10 and
// title threshold of 80.
func NewClient(index Index, opts ...Option) *Client {
	c := &Client{
		index:          index,
		limit:          10,
		titleThreshold: fuzzy.TitleThreshold,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String(logger.FieldIndex, index.Name()))
	return c
}

// NewClientFromConfig builds the index and client described by cfg.
func NewClientFromConfig(cfg types.LookupConfig, log *zap.Logger, m *metrics.Metrics) (*Client, error) {
	index, err := NewIndex(cfg, nil, log)
	if err != nil {
		return nil, err
	}
	return NewClient(index,
		WithLimit(cfg.Limit),
		WithTitleThreshold(cfg.TitleThreshold),
		WithPolicy(fuzzy.Policy{SkipAuthorValidation: cfg.SkipAuthorValidation}),
		WithLogger(log),
		WithMetrics(m),
	), nil
}

// Index returns the underlying index.
func (c *Client) Index() Index { return c.index }

// Lookup issues one bounded search for title and returns the first candidate,
// in index order, whose title matches and whose author list contains a name
// accepted for author. Failures never surface as errors: they produce a
// NotFound result carrying the reason.
func (c *Client) Lookup(ctx context.Context, title, author string) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return c.notFound(metrics.OutcomeNoTitle, ReasonEmptyTitle)
	}

	candidates, err := c.index.Search(ctx, title, c.limit)
	if err != nil {
		return c.notFound(metrics.OutcomeIndexError, reasonIndexError+err.Error())
	}

	titleMatched := false
	for _, cand := range candidates {
		if cand.Title == "" {
			c.logger.Debug("skipping candidate without title", zap.String("paper_id", cand.PaperID))
			continue
		}
		if !c.titleMatches(cand, title) {
			continue
		}
		titleMatched = true
		for _, name := range cand.Authors {
			if c.policy.Accept(name, author) {
				c.metrics.ObserveLookup(c.index.Name(), metrics.OutcomeMatched)
				return Result{Match: c.match(cand, name)}
			}
		}
	}

	if titleMatched {
		return c.notFound(metrics.OutcomeNoAuthor, ReasonNoAuthorMatch)
	}
	return c.notFound(metrics.OutcomeNoTitle, ReasonNoTitleMatch)
}

// doiRe matches a bare DOI such as 10.1109/5.726791.
var doiRe = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// titleMatches accepts a fuzzy title match, or a title that is itself a DOI
// equal to the candidate's DOI.
func (c *Client) titleMatches(cand Candidate, title string) bool {
	if fuzzy.Similar(cand.Title, title, c.titleThreshold) {
		return true
	}
	q := normalizeDOI(title)
	return doiRe.MatchString(q) && q == normalizeDOI(cand.DOI)
}

// normalizeDOI lowercases a DOI and strips resolver and scheme prefixes.
func normalizeDOI(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			return strings.TrimSpace(after)
		}
	}
	return s
}

func (c *Client) match(cand Candidate, author string) *Match {
	return &Match{
		Title:         cand.Title,
		PaperID:       cand.PaperID,
		DOI:           cand.DOI,
		Year:          cand.Year,
		CitationCount: cand.CitationCount,
		Venue:         cand.Venue,
		VenueID:       cand.VenueID,
		VenueName:     cand.VenueName,
		VenueType:     cand.VenueType,
		VenueURL:      cand.VenueURL,
		Author:        author,
		Source:        c.index.Name(),
	}
}

func (c *Client) notFound(outcome, reason string) Result {
	c.metrics.ObserveLookup(c.index.Name(), outcome)
	return Result{Reason: reason}
}
