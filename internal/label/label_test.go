// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package label

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/llm/llmtest"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

func enrichedCV(t *testing.T) types.Record {
	t.Helper()
	cv, err := types.ParseRecord([]byte(`{
	  "name": "Yann LeCun",
	  "email": "yann@example.edu",
	  "education": [{"school": "Université Pierre et Marie Curie", "year": 1987, "degree": "PhD"}],
	  "awards": [{"award": "Turing Award", "year": 2018}],
	  "publications": [
	    {"title": "Gradient-based learning applied to document recognition", "venue": "Proceedings of the IEEE", "year": 1998,
	     "all_authors": ["Y. LeCun", "L. Bottou"], "doi": "10.1109/5.726791", "citation_count": 50000, "paper_id": "abc"},
	    {"title": "Deep learning", "venue": "Nature", "year": 2015, "all_authors": ["Y. LeCun", "Y. Bengio", "G. Hinton"], "citation_count": 70000},
	    {"title": "Optimal brain damage", "venue": "NeurIPS", "year": 1989, "all_authors": ["Y. LeCun"], "citation_count": 4000}
	  ],
	  "employment_history": [],
	  "media_coverage": [],
	  "predicted_research_fields": ["deep learning", "computer vision"]
	}`))
	require.NoError(t, err)
	return cv
}

func echoLabels(listKey string, label string) llmtest.Handler {
	return func(req llm.Request) (json.RawMessage, error) {
		// Echo the records found in the prompt back with a label.
		start := strings.Index(req.Prompt, "data: ")
		var items []map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(req.Prompt[start+len("data: "):])), &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			it["extraordinary"] = label
		}
		return json.Marshal(map[string]any{listKey: items})
	}
}

func TestLabelMergesIntoOriginals(t *testing.T) {
	fake := llmtest.New().
		Respond("label_education", `{"labeled_education": [{"school": "UPMC", "year": 1987, "degree": "PhD", "extraordinary": "yes"}]}`).
		Respond("label_awards", `{"labeled_awards": [{"award": "Turing Award", "year": 2018, "extraordinary": "yes"}]}`).
		Respond("label_publications", `{"labeled_publications": [
		  {"title": "Gradient-based learning", "venue": "Proc. IEEE", "year": 1998, "doi": null, "all_authors": [], "extraordinary": "yes"},
		  {"title": "Deep learning", "venue": "Nature", "year": 2015, "doi": null, "all_authors": [], "extraordinary": "yes"},
		  {"title": "Optimal brain damage", "venue": "NeurIPS", "year": 1989, "doi": null, "all_authors": [], "extraordinary": ""}
		]}`)
	s := NewStage(fake, nil, nil)
	cv := enrichedCV(t)

	out, err := s.Label(context.Background(), cv)
	require.NoError(t, err)

	edu := out.Records(types.KeyEducation)
	require.Len(t, edu, 1)
	assert.Equal(t, "Université Pierre et Marie Curie", edu[0]["school"], "original fields win over echoed ones")
	assert.Equal(t, "yes", edu[0]["extraordinary"])

	pubs := out.Records(types.KeyPublications)
	require.Len(t, pubs, 3)
	assert.Equal(t, "Gradient-based learning applied to document recognition", pubs[0]["title"])
	assert.Equal(t, "10.1109/5.726791", pubs[0]["doi"], "enrichment fields survive labeling")
	assert.Equal(t, "abc", pubs[0]["paper_id"])
	assert.Equal(t, "yes", pubs[0]["extraordinary"])
	assert.Equal(t, "", pubs[2]["extraordinary"])

	// Input is untouched.
	_, labeled := cv.Records(types.KeyPublications)[0]["extraordinary"]
	assert.False(t, labeled)

	// Empty sections are skipped without a call.
	assert.Empty(t, fake.CallsNamed("label_employment"))
	assert.Empty(t, fake.CallsNamed("label_media_coverage"))
}

func TestLabelGroupShortAnswerLeavesRestUnlabeled(t *testing.T) {
	fake := llmtest.New().Respond("label_publications", `{"labeled_publications": [
	  {"title": "x", "venue": "", "year": null, "doi": null, "all_authors": [], "extraordinary": "no"}
	]}`)
	s := NewStage(fake, nil, nil)
	cv := enrichedCV(t)

	out, err := s.LabelGroup(context.Background(), Groups[2], cv[types.KeyPublications], "")
	require.NoError(t, err)
	recs := types.AsRecords(out)
	require.Len(t, recs, 3)
	assert.Equal(t, "no", recs[0]["extraordinary"])
	_, ok := recs[1]["extraordinary"]
	assert.False(t, ok)
}

func TestLabelGroupKeepsNonObjectEntries(t *testing.T) {
	fake := llmtest.New().On("label_media_coverage", echoLabels("labeled_media_coverage", "yes"))
	s := NewStage(fake, nil, nil)

	section := []any{
		"Interview on national radio",
		map[string]any{"media_name": "Wired", "media_domain": "wired.com", "title": "The father of CNNs",
			"url_source": "https://wired.com/x", "description": "", "published_time": "2019"},
	}
	out, err := s.LabelGroup(context.Background(), Groups[4], section, "Yann LeCun")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Interview on national radio", out[0])
	assert.Equal(t, "yes", types.AsRecords(out)[0]["extraordinary"])

	calls := fake.CallsNamed("label_media_coverage")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "for Yann LeCun")
	assert.Contains(t, calls[0].Schema.Required, "labeled_media_coverage")
}

func TestLabelPropagatesErrors(t *testing.T) {
	fake := llmtest.New().Fail("label_education", llm.ErrSchemaViolation)
	_, err := NewStage(fake, nil, nil).Label(context.Background(), enrichedCV(t))
	assert.ErrorIs(t, err, llm.ErrSchemaViolation)
}

func TestAnalyzeResearchFields(t *testing.T) {
	fake := llmtest.New().On(CallClassifyPublication, func(req llm.Request) (json.RawMessage, error) {
		switch {
		case strings.Contains(req.Prompt, "document recognition"):
			return json.RawMessage(`{"fields": ["Computer Vision", "deep learning", "deep learning"]}`), nil
		case strings.Contains(req.Prompt, "Deep learning"):
			return json.RawMessage(`{"fields": ["deep learning", "biology"]}`), nil
		default:
			return json.RawMessage(`{"fields": ["deep learning"]}`), nil
		}
	})
	s := NewStage(fake, nil, nil)

	got, err := s.AnalyzeResearchFields(context.Background(), enrichedCV(t))
	require.NoError(t, err)
	assert.Equal(t, []FieldMetrics{
		{Field: "deep learning", PublicationCount: 3, MedianCitationCount: 50000},
		{Field: "computer vision", PublicationCount: 1, MedianCitationCount: 50000},
	}, got)
	assert.Len(t, fake.CallsNamed(CallClassifyPublication), 3)
}

func TestAnalyzeResearchFieldsWithoutFields(t *testing.T) {
	fake := llmtest.New()
	cv := enrichedCV(t)
	delete(cv, types.KeyResearchFields)

	got, err := NewStage(fake, nil, nil).AnalyzeResearchFields(context.Background(), cv)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, fake.Calls())
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []int
		want int
	}{
		{nil, 0},
		{[]int{7}, 7},
		{[]int{3, 1, 2}, 2},
		{[]int{1, 2}, 1},
		{[]int{4000, 50000, 70000, 10}, 27000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, median(tt.in), "median(%v)", tt.in)
	}
}

func TestEstimateFieldStatistics(t *testing.T) {
	fake := llmtest.New().Respond(CallFieldStatistics, `{"field_statistics": [
	  {"field": "deep learning", "median_annual_publication_count": 2.5, "median_career_citation_count": 1200}
	]}`)
	s := NewStage(fake, nil, nil)

	got, err := s.EstimateFieldStatistics(context.Background(), []string{"deep learning"})
	require.NoError(t, err)
	assert.Equal(t, []FieldStatistics{{Field: "deep learning", MedianAnnualPublicationCount: 2.5, MedianCareerCitationCount: 1200}}, got)

	got, err = s.EstimateFieldStatistics(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Len(t, fake.Calls(), 1)
}

func TestResearcherImpact(t *testing.T) {
	impact := ResearcherImpact(enrichedCV(t), []FieldStatistics{
		{Field: "deep learning", MedianAnnualPublicationCount: 0.1, MedianCareerCitationCount: 1240},
		{Field: "computer vision", MedianAnnualPublicationCount: 0, MedianCareerCitationCount: 0},
	})

	assert.Equal(t, 3, impact.Researcher.TotalPublications)
	assert.Equal(t, 124000, impact.Researcher.TotalCitations)
	assert.Equal(t, 2015-1989+1, impact.Researcher.YearsActive)
	assert.InDelta(t, 3.0/27.0, impact.Researcher.AnnualPublicationRate, 1e-9)

	require.Len(t, impact.Fields, 2)
	require.NotNil(t, impact.Fields[0].CitationImpactComparison)
	assert.InDelta(t, 100.0, *impact.Fields[0].CitationImpactComparison, 1e-9)
	assert.Nil(t, impact.Fields[1].PublicationRateComparison, "zero field median must not divide")
	assert.Nil(t, impact.Fields[1].CitationImpactComparison)
}

func TestResearcherImpactWithoutPublications(t *testing.T) {
	impact := ResearcherImpact(types.Record{"name": "x"}, nil)
	assert.Equal(t, ResearcherStatistics{}, impact.Researcher)
	assert.Empty(t, impact.Fields)
}

func TestAnalyze(t *testing.T) {
	fake := llmtest.New().
		On("label_education", echoLabels("labeled_education", "yes")).
		On("label_awards", echoLabels("labeled_awards", "yes")).
		On("label_publications", echoLabels("labeled_publications", "no")).
		Respond(CallClassifyPublication, `{"fields": ["deep learning"]}`).
		Respond(CallFieldStatistics, `{"field_statistics": [
		  {"field": "deep learning", "median_annual_publication_count": 2, "median_career_citation_count": 1000},
		  {"field": "computer vision", "median_annual_publication_count": 3, "median_career_citation_count": 900}
		]}`)
	s := NewStage(fake, nil, nil)

	out, err := s.Analyze(context.Background(), enrichedCV(t))
	require.NoError(t, err)

	metrics := out.Records(types.KeyResearchFieldMetrics)
	require.Len(t, metrics, 2)
	assert.Equal(t, "deep learning", metrics[0]["field"])
	assert.Equal(t, float64(3), metrics[0]["median_publication_count"])
	assert.Len(t, out.Records(types.KeyFieldStatistics), 2)

	impact, ok := out[types.KeyResearcherImpact].(types.Record)
	require.True(t, ok)
	assert.Len(t, impact.Records("field_impact_analysis"), 2)
	assert.Equal(t, "no", out.Records(types.KeyPublications)[1]["extraordinary"])
}

func TestInsights(t *testing.T) {
	fake := llmtest.New().OnText(func(system, prompt string) (string, error) {
		if !strings.Contains(prompt, "Turing Award") {
			return "", errors.New("record missing from prompt")
		}
		return "Pioneer of convolutional networks.", nil
	})
	s := NewStage(fake, fake, nil)

	text, err := s.Insights(context.Background(), enrichedCV(t))
	require.NoError(t, err)
	assert.Equal(t, "Pioneer of convolutional networks.", text)

	_, err = NewStage(fake, nil, nil).Insights(context.Background(), enrichedCV(t))
	assert.Error(t, err)
}
