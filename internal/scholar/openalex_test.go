// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAlexBody = `{
  "meta": {"count": 1},
  "results": [
    {
      "id": "https://openalex.org/W2112796928",
      "title": "Gradient-based learning applied to document recognition",
      "doi": "https://doi.org/10.1109/5.726791",
      "publication_year": 1998,
      "cited_by_count": 48000,
      "authorships": [
        {"author": {"id": "https://openalex.org/A1", "display_name": "Yann LeCun"}},
        {"author": {"id": "https://openalex.org/A2", "display_name": "Léon Bottou"}}
      ],
      "primary_location": {
        "source": {"id": "https://openalex.org/S1", "display_name": "Proceedings of the IEEE", "type": "journal", "homepage_url": "https://ieeexplore.ieee.org"}
      }
    }
  ]
}`

func withOpenAlexServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	t.Cleanup(func() {
		openAlexSearchBase = old
		ts.Close()
	})
	return ts
}

func TestOpenAlexSearch(t *testing.T) {
	var captured *http.Request
	ts := withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, openAlexBody)
	})

	o := &OpenAlex{Client: ts.Client(), Email: "me@example.com"}
	got, err := o.Search(context.Background(), "Gradient-based learning", 500)
	require.NoError(t, err)
	require.Len(t, got, 1)

	q := captured.URL.Query()
	assert.Equal(t, "Gradient-based learning", q.Get("search"))
	assert.Equal(t, "200", q.Get("per_page"), "per_page is capped")
	assert.Equal(t, "me@example.com", q.Get("mailto"))

	c := got[0]
	assert.Equal(t, "W2112796928", c.PaperID)
	assert.Equal(t, "10.1109/5.726791", c.DOI)
	assert.Equal(t, 1998, *c.Year)
	assert.Equal(t, 48000, *c.CitationCount)
	assert.Equal(t, "Proceedings of the IEEE", c.Venue)
	assert.Equal(t, "journal", c.VenueType)
	assert.Equal(t, []string{"Yann LeCun", "Léon Bottou"}, c.Authors)
}

func TestOpenAlexMissingResults(t *testing.T) {
	ts := withOpenAlexServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"meta": {"count": 0}}`)
	})

	o := &OpenAlex{Client: ts.Client()}
	_, err := o.Search(context.Background(), "x", 10)
	assert.ErrorIs(t, err, ErrMissingResults)
}
