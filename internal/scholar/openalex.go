// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/httputil"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexSelect = "id,title,doi,publication_year,cited_by_count,authorships,primary_location"

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email      string
	UserAgent  string
	MaxRetries int
	Logger     *zap.Logger
}

// Name returns the index identifier.
func (o *OpenAlex) Name() string { return types.IndexOpenAlex }

// Search queries the works endpoint with the title as free text.
func (o *OpenAlex) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 200 {
		limit = 200
	}

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(limit)},
		"select":   {openAlexSelect},
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, o.Client, req, o.MaxRetries, httputil.WithLogger(o.Logger))
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError("OpenAlex", resp)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	if oar.Results == nil {
		return nil, fmt.Errorf("OpenAlex: %w", ErrMissingResults)
	}

	candidates := make([]Candidate, 0, len(*oar.Results))
	for _, w := range *oar.Results {
		c := Candidate{
			PaperID:       strings.TrimPrefix(w.ID, "https://openalex.org/"),
			Title:         w.Title,
			DOI:           strings.TrimPrefix(w.DOI, "https://doi.org/"),
			Year:          w.PublicationYear,
			CitationCount: w.CitedByCount,
		}
		if src := w.PrimaryLocation.Source; src != nil {
			c.Venue = src.DisplayName
			c.VenueID = src.ID
			c.VenueName = src.DisplayName
			c.VenueType = src.Type
			c.VenueURL = src.HomepageURL
		}
		for _, a := range w.Authorships {
			if a.Author.DisplayName != "" {
				c.Authors = append(c.Authors, a.Author.DisplayName)
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results *[]openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DOI             string               `json:"doi"`
	PublicationYear *int                 `json:"publication_year"`
	CitedByCount    *int                 `json:"cited_by_count"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	PrimaryLocation openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	HomepageURL string `json:"homepage_url"`
}
