// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePreservesBaseAndAddsNewKeys(t *testing.T) {
	base := Record{"title": "Gradient-based learning", "venue": "Proc. IEEE", "all_authors": []any{"Y. LeCun"}}
	additions := Record{
		"title":          "Gradient-based learning applied to document recognition",
		"venue":          "Proceedings of the IEEE",
		"doi":            "10.1109/5.726791",
		"citation_count": float64(50000),
		"note":           "extra",
	}

	got := Merge(base, additions, EnrichmentKeys)

	assert.Equal(t, "Gradient-based learning", got["title"], "non-whitelisted key must keep the base value")
	assert.Equal(t, "Proceedings of the IEEE", got["venue"], "whitelisted key takes the addition")
	assert.Equal(t, "10.1109/5.726791", got["doi"])
	assert.Equal(t, float64(50000), got["citation_count"])
	assert.Equal(t, "extra", got["note"])
	assert.Equal(t, []any{"Y. LeCun"}, got["all_authors"])

	// base is untouched.
	assert.Equal(t, "Proc. IEEE", base["venue"])
	_, hasDOI := base["doi"]
	assert.False(t, hasDOI)
}

func TestMergeNilAdditionsNeverErase(t *testing.T) {
	base := Record{"doi": "10.1/x", "year": float64(1998)}
	got := Merge(base, Record{"doi": nil, "venue_url": nil}, EnrichmentKeys)

	assert.Equal(t, "10.1/x", got["doi"])
	v, ok := got["venue_url"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestMergeFillsNullBaseValue(t *testing.T) {
	base := Record{"note": nil}
	got := Merge(base, Record{"note": "filled"}, nil)
	assert.Equal(t, "filled", got["note"])
}

func TestCloneIsDeep(t *testing.T) {
	r := Record{"publications": []any{map[string]any{"title": "A"}}}
	c := r.Clone()
	c.Records("publications")[0]["title"] = "B"

	assert.Equal(t, "A", r.Records("publications")[0]["title"])
}

func TestRecordAccessors(t *testing.T) {
	r, err := ParseRecord([]byte(`{"name":"Yann LeCun","year":1998,"fields":["ml", 3],"pubs":[{"title":"A"}, "x"]}`))
	require.NoError(t, err)

	assert.Equal(t, "Yann LeCun", r.String("name"))
	assert.Equal(t, "1998", r.String("year"))
	assert.Equal(t, "", r.String("missing"))

	n, ok := r.Int("year")
	assert.True(t, ok)
	assert.Equal(t, 1998, n)
	_, ok = r.Int("name")
	assert.False(t, ok)

	assert.Equal(t, []string{"ml", "3"}, r.Strings("fields"))
	assert.Len(t, r.Records("pubs"), 1)
	assert.Equal(t, []string{"fields", "name", "pubs", "year"}, r.Keys())
}

func TestParseRecordRejectsNonObject(t *testing.T) {
	_, err := ParseRecord([]byte(`null`))
	assert.Error(t, err)
	_, err = ParseRecord([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in      string
		want    Rating
		wantErr bool
	}{
		{"low", RatingLow, false},
		{" High ", RatingHigh, false},
		{"MEDIUM", RatingMedium, false},
		{"very high", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRating(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
