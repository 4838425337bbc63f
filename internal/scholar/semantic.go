// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/httputil"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,externalIds,year,citationCount,authors,venue,publicationVenue"

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client     *http.Client
	APIKey     string
	UserAgent  string
	MaxRetries int
	Logger     *zap.Logger
}

// Name returns the index identifier.
func (s *SemanticScholar) Name() string { return types.IndexSemanticScholar }

// Search queries the paper search endpoint with the title as free text.
func (s *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query":  {query},
		"fields": {semanticFields},
		"limit":  {strconv.Itoa(limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, s.MaxRetries, httputil.WithLogger(s.Logger))
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("Semantic Scholar", resp)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	if sr.Data == nil {
		return nil, fmt.Errorf("Semantic Scholar: %w", ErrMissingResults)
	}

	candidates := make([]Candidate, 0, len(*sr.Data))
	for _, p := range *sr.Data {
		c := Candidate{
			PaperID:       p.PaperID,
			Title:         p.Title,
			DOI:           p.ExternalIDs.DOI,
			Year:          p.Year,
			CitationCount: p.CitationCount,
			Venue:         p.Venue,
		}
		if v := p.PublicationVenue; v != nil {
			c.VenueID = v.ID
			c.VenueName = v.Name
			c.VenueType = v.Type
			c.VenueURL = v.URL
		}
		for _, a := range p.Authors {
			if a.Name != "" {
				c.Authors = append(c.Authors, a.Name)
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Data   *[]semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID          string              `json:"paperId"`
	Title            string              `json:"title"`
	Year             *int                `json:"year"`
	CitationCount    *int                `json:"citationCount"`
	Venue            string              `json:"venue"`
	PublicationVenue *semanticVenue      `json:"publicationVenue"`
	Authors          []semanticAuthor    `json:"authors"`
	ExternalIDs      semanticExternalIDs `json:"externalIds"`
}

type semanticVenue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
