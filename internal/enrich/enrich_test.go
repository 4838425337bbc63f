// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/cv-evaluator/internal/pace"
	"github.com/pdiddy/cv-evaluator/internal/scholar"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// fakeLooker matches titles present in matches and records every call.
type fakeLooker struct {
	matches map[string]*scholar.Match
	calls   []string
	onCall  func(n int)
}

func (f *fakeLooker) Lookup(_ context.Context, title, author string) scholar.Result {
	f.calls = append(f.calls, title+"|"+author)
	if f.onCall != nil {
		f.onCall(len(f.calls))
	}
	if m, ok := f.matches[title]; ok {
		return scholar.Result{Match: m}
	}
	return scholar.Result{Reason: scholar.ReasonNoTitleMatch}
}

func intp(n int) *int { return &n }

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStage(l Looker) (*Stage, *pace.ManualClock) {
	clock := pace.NewManualClock(epoch)
	return NewStage(l, pace.NewGate(500*time.Millisecond, clock), zap.NewNop()), clock
}

func pubs(titles ...string) []types.Record {
	out := make([]types.Record, len(titles))
	for i, t := range titles {
		out[i] = types.Record{"title": t, "venue": "as written on the CV"}
	}
	return out
}

func TestEnrichPreservesOrderLengthAndTitles(t *testing.T) {
	looker := &fakeLooker{matches: map[string]*scholar.Match{
		"Deep learning": {
			Title:         "Deep Learning",
			DOI:           "10.1038/nature14539",
			Year:          intp(2015),
			CitationCount: intp(60000),
			Venue:         "Nature",
			Source:        "fake",
		},
	}}

	tests := []struct {
		name   string
		titles []string
	}{
		{"empty", nil},
		{"single unmatched", []string{"Unknown paper"}},
		{"single matched", []string{"Deep learning"}},
		{"mixed", []string{"A", "Deep learning", "B", "Deep learning", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, _ := newTestStage(looker)
			in := pubs(tt.titles...)

			out, sum, err := stage.Enrich(context.Background(), in, "Yann LeCun")
			require.NoError(t, err)
			require.Len(t, out, len(in))
			assert.Equal(t, len(in), sum.Total)
			assert.Equal(t, len(in), sum.Matched+sum.Unmatched)

			for i := range in {
				assert.Equal(t, tt.titles[i], out[i]["title"], "title at %d is unchanged", i)
			}
		})
	}
}

func TestEnrichMergesMatchWithoutLosingFields(t *testing.T) {
	looker := &fakeLooker{matches: map[string]*scholar.Match{
		"Deep learning": {Title: "Deep Learning", DOI: "10.1038/nature14539", Year: intp(2015), Venue: "Nature", Source: "fake"},
	}}
	stage, _ := newTestStage(looker)

	in := []types.Record{{"title": "Deep learning", "venue": "Nature (2015)", "all_authors": []any{"LeCun", "Bengio", "Hinton"}}}
	out, sum, err := stage.Enrich(context.Background(), in, "Yann LeCun")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Matched)

	got := out[0]
	assert.Equal(t, "Deep learning", got["title"])
	assert.Equal(t, "Deep Learning", got["matched_title"])
	assert.Equal(t, "Nature", got["venue"], "bibliographic keys take the index value")
	assert.Equal(t, "10.1038/nature14539", got["doi"])
	assert.Equal(t, 2015, got["year"])
	assert.Equal(t, []any{"LeCun", "Bengio", "Hinton"}, got["all_authors"])

	assert.Equal(t, "Nature (2015)", in[0]["venue"], "input is not mutated")
	_, hasDOI := in[0]["doi"]
	assert.False(t, hasDOI)
}

func TestEnrichPacesEveryLookup(t *testing.T) {
	looker := &fakeLooker{}
	stage, clock := newTestStage(looker)

	_, _, err := stage.Enrich(context.Background(), pubs("a", "b", "c", "d"), "Yann LeCun")
	require.NoError(t, err)

	assert.Equal(t, []string{"a|Yann LeCun", "b|Yann LeCun", "c|Yann LeCun", "d|Yann LeCun"}, looker.calls)
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}, clock.Sleeps())
}

func TestEnrichCancellationPassesRestThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	looker := &fakeLooker{
		matches: map[string]*scholar.Match{"a": {Title: "A", DOI: "10.1/a"}},
		onCall: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	stage, _ := newTestStage(looker)

	out, sum, err := stage.Enrich(ctx, pubs("a", "b", "c", "d"), "X")
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, out, 4)
	assert.Len(t, looker.calls, 2)
	assert.Equal(t, "10.1/a", out[0]["doi"])
	assert.Equal(t, 2, sum.Skipped)
	for i, title := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, title, out[i]["title"])
	}
}

func TestEnrichLogsReason(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	clock := pace.NewManualClock(epoch)
	stage := NewStage(&fakeLooker{}, pace.NewGate(time.Second, clock), zap.New(core))

	_, _, err := stage.Enrich(context.Background(), pubs("Unknown"), "X")
	require.NoError(t, err)

	entries := observed.FilterMessage("no match").All()
	require.Len(t, entries, 1)
	assert.Equal(t, scholar.ReasonNoTitleMatch, entries[0].ContextMap()["reason"])
	assert.Equal(t, "enrich", entries[0].ContextMap()["stage"])
}

func TestEnrichCV(t *testing.T) {
	looker := &fakeLooker{matches: map[string]*scholar.Match{
		"Deep learning": {Title: "Deep Learning", DOI: "10.1038/nature14539"},
	}}
	stage, _ := newTestStage(looker)

	cv, err := types.ParseRecord([]byte(`{
		"name": "Yann LeCun",
		"email": "yann@example.com",
		"publications": [{"title": "Deep learning"}, "free text entry", {"title": "Other"}],
		"awards": [{"title": "Turing Award"}]
	}`))
	require.NoError(t, err)

	out, sum, err := stage.EnrichCV(context.Background(), cv)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Matched: 1, Unmatched: 1}, sum)

	list := out[types.KeyPublications].([]any)
	require.Len(t, list, 3)
	assert.Equal(t, "free text entry", list[1])
	assert.Equal(t, "10.1038/nature14539", types.AsRecords(list)[0]["doi"])
	assert.Equal(t, cv.Records("awards"), out.Records("awards"))
	assert.Equal(t, []string{"Deep learning|Yann LeCun", "Other|Yann LeCun"}, looker.calls)

	_, hasDOI := cv.Records(types.KeyPublications)[0]["doi"]
	assert.False(t, hasDOI, "input CV is not mutated")
}

func TestEnrichCVWithoutPublications(t *testing.T) {
	stage, _ := newTestStage(&fakeLooker{})
	cv := types.Record{"name": "Someone"}

	out, sum, err := stage.EnrichCV(context.Background(), cv)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Equal(t, cv, out)
}

func ExampleStage_Enrich() {
	looker := &fakeLooker{matches: map[string]*scholar.Match{
		"Deep learning": {Title: "Deep Learning", DOI: "10.1038/nature14539"},
	}}
	stage := NewStage(looker, pace.NewGate(0, nil), nil)

	out, _, _ := stage.Enrich(context.Background(), []types.Record{{"title": "Deep learning"}}, "Yann LeCun")
	fmt.Println(out[0]["title"], out[0]["doi"])
	// Output: Deep learning 10.1038/nature14539
}
