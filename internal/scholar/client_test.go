// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cv-evaluator/internal/fuzzy"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// fakeIndex returns fixed candidates and records the queries it receives.
type fakeIndex struct {
	candidates []Candidate
	err        error
	queries    []string
	limits     []int
}

func (f *fakeIndex) Name() string { return "fake" }

func (f *fakeIndex) Search(_ context.Context, query string, limit int) ([]Candidate, error) {
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	return f.candidates, f.err
}

func intp(n int) *int { return &n }

var gradientPaper = Candidate{
	PaperID:       "p1",
	Title:         "Gradient-based learning applied to document recognition",
	DOI:           "10.1109/5.726791",
	Year:          intp(1998),
	CitationCount: intp(52000),
	Venue:         "Proceedings of the IEEE",
	Authors:       []string{"Yann LeCun", "Léon Bottou"},
}

func TestLookupMatchesInitialAndLastName(t *testing.T) {
	idx := &fakeIndex{candidates: []Candidate{gradientPaper}}
	c := NewClient(idx)

	res := c.Lookup(context.Background(), "Gradient-based learning applied to document recognition", "Y. LeCun")
	require.True(t, res.Found(), res.Reason)
	assert.Equal(t, "Yann LeCun", res.Match.Author)
	assert.Equal(t, "fake", res.Match.Source)
	assert.Equal(t, []string{"Gradient-based learning applied to document recognition"}, idx.queries)
	assert.Equal(t, []int{10}, idx.limits)
}

func TestLookupRejectsOtherAuthor(t *testing.T) {
	paper := gradientPaper
	paper.Authors = []string{"Yann Bengio"}
	c := NewClient(&fakeIndex{candidates: []Candidate{paper}})

	res := c.Lookup(context.Background(), paper.Title, "Y. LeCun")
	assert.False(t, res.Found())
	assert.Equal(t, ReasonNoAuthorMatch, res.Reason)
}

func TestLookupSkipAuthorValidation(t *testing.T) {
	paper := gradientPaper
	paper.Authors = []string{"Yann Bengio"}
	c := NewClient(&fakeIndex{candidates: []Candidate{paper}}, WithPolicy(fuzzy.Policy{SkipAuthorValidation: true}))

	res := c.Lookup(context.Background(), paper.Title, "Y. LeCun")
	require.True(t, res.Found())
	assert.Equal(t, "Yann Bengio", res.Match.Author)
}

func TestLookupFirstMatchInIndexOrder(t *testing.T) {
	wrong := Candidate{PaperID: "p0", Title: "Unrelated survey of kernels", Authors: []string{"Yann LeCun"}}
	noAuthor := gradientPaper
	noAuthor.PaperID = "p1"
	noAuthor.Authors = []string{"Someone Else"}
	right := gradientPaper
	right.PaperID = "p2"
	later := gradientPaper
	later.PaperID = "p3"

	c := NewClient(&fakeIndex{candidates: []Candidate{wrong, noAuthor, right, later}})
	res := c.Lookup(context.Background(), gradientPaper.Title, "Yann LeCun")
	require.True(t, res.Found())
	assert.Equal(t, "p2", res.Match.PaperID)
}

func TestLookupTitleIsDOI(t *testing.T) {
	for _, title := range []string{"10.1109/5.726791", "https://doi.org/10.1109/5.726791", "DOI:10.1109/5.726791"} {
		c := NewClient(&fakeIndex{candidates: []Candidate{gradientPaper}})
		res := c.Lookup(context.Background(), title, "Yann LeCun")
		assert.True(t, res.Found(), title)
	}
}

func TestLookupDOIFallbackRequiresWholeDOI(t *testing.T) {
	deepLearning := Candidate{
		PaperID: "p9",
		Title:   "Deep learning",
		DOI:     "10.1038/nature14539",
		Authors: []string{"Yann LeCun"},
	}
	for _, title := range []string{"Nature", "10", "e", "10.1038/nature", "nature14539"} {
		t.Run(title, func(t *testing.T) {
			c := NewClient(&fakeIndex{candidates: []Candidate{deepLearning}})
			res := c.Lookup(context.Background(), title, "Yann LeCun")
			assert.False(t, res.Found())
			assert.Equal(t, ReasonNoTitleMatch, res.Reason)
		})
	}
}

func TestNormalizeDOI(t *testing.T) {
	assert.Equal(t, "10.1038/nature14539", normalizeDOI(" https://doi.org/10.1038/Nature14539 "))
	assert.Equal(t, "10.1038/nature14539", normalizeDOI("doi:10.1038/nature14539"))
	assert.Equal(t, "nature", normalizeDOI("Nature"))
}

func TestLookupNotFoundReasons(t *testing.T) {
	tests := []struct {
		name       string
		index      *fakeIndex
		title      string
		wantReason string
	}{
		{"empty title", &fakeIndex{}, "  ", ReasonEmptyTitle},
		{"no candidates", &fakeIndex{}, "Some title", ReasonNoTitleMatch},
		{"no title match", &fakeIndex{candidates: []Candidate{gradientPaper}}, "Attention is all you need", ReasonNoTitleMatch},
		{"untitled candidates skipped", &fakeIndex{candidates: []Candidate{{Authors: []string{"Yann LeCun"}}}}, "Some title", ReasonNoTitleMatch},
		{"index error", &fakeIndex{err: errors.New("boom")}, "Some title", "index error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewClient(tt.index).Lookup(context.Background(), tt.title, "Yann LeCun")
			assert.False(t, res.Found())
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestLookupSoftFailsOnHTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{"http 500", http.StatusInternalServerError, "oops", "HTTP 500"},
		{"missing data", http.StatusOK, `{"error":"bad"}`, ErrMissingResults.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			c := NewClient(&SemanticScholar{Client: ts.Client()})

			res := c.Lookup(context.Background(), "Some title", "Yann LeCun")
			assert.False(t, res.Found())
			assert.True(t, strings.HasPrefix(res.Reason, "index error: "), res.Reason)
			assert.Contains(t, res.Reason, tt.wantReason)
		})
	}
}

func TestMatchRecord(t *testing.T) {
	c := NewClient(&fakeIndex{candidates: []Candidate{gradientPaper}})
	res := c.Lookup(context.Background(), gradientPaper.Title, "Yann LeCun")
	require.True(t, res.Found())

	rec := res.Match.Record()
	assert.Equal(t, gradientPaper.Title, rec["matched_title"])
	assert.Equal(t, "10.1109/5.726791", rec["doi"])
	assert.Equal(t, 1998, rec["year"])
	assert.Equal(t, 52000, rec["citation_count"])
	assert.Nil(t, rec["venue_url"])
	assert.Equal(t, "fake", rec["bibliographic_source"])
	_, hasTitle := rec["title"]
	assert.False(t, hasTitle, "a match never carries the title key")

	for k := range rec {
		assert.True(t, types.EnrichmentKeys[k], "key %q must be whitelisted", k)
	}
}

func TestLookupRecordsMetrics(t *testing.T) {
	m := metrics.New()
	c := NewClient(&fakeIndex{candidates: []Candidate{gradientPaper}}, WithMetrics(m))

	c.Lookup(context.Background(), gradientPaper.Title, "Yann LeCun")
	c.Lookup(context.Background(), gradientPaper.Title, "Someone Else")

	n, err := testutil.GatherAndCount(m.Registry(), "cv_evaluator_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewIndex(t *testing.T) {
	cfg := types.DefaultConfig().Lookup

	idx, err := NewIndex(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.IndexSemanticScholar, idx.Name())

	cfg.Index = types.IndexOpenAlex
	idx, err = NewIndex(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.IndexOpenAlex, idx.Name())

	cfg.Index = "crossref"
	_, err = NewIndex(cfg, nil, nil)
	assert.Error(t, err)
}
