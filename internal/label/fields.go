// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package label

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/schema"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Call names sent to the text-understanding service.
const (
	CallClassifyPublication = "classify_publication"
	CallFieldStatistics     = "estimate_field_statistics"
)

// FieldMetrics summarizes the applicant's publications in one research field.
type FieldMetrics struct {
	Field string `json:"field" yaml:"field"`
	// PublicationCount is the number of publications classified into Field.
	PublicationCount    int `json:"median_publication_count" yaml:"median_publication_count"`
	MedianCitationCount int `json:"median_citation_count" yaml:"median_citation_count"`
}

// FieldStatistics is the estimated output of a typical researcher in a field.
type FieldStatistics struct {
	Field                        string  `json:"field" yaml:"field"`
	MedianAnnualPublicationCount float64 `json:"median_annual_publication_count" yaml:"median_annual_publication_count"`
	MedianCareerCitationCount    int     `json:"median_career_citation_count" yaml:"median_career_citation_count"`
}

// ResearcherStatistics are totals over the applicant's publications.
type ResearcherStatistics struct {
	TotalPublications     int     `json:"total_publications" yaml:"total_publications"`
	TotalCitations        int     `json:"total_citations" yaml:"total_citations"`
	YearsActive           int     `json:"years_active" yaml:"years_active"`
	AnnualPublicationRate float64 `json:"annual_publication_rate" yaml:"annual_publication_rate"`
}

// FieldImpact compares the applicant with a field median. A nil ratio means
// the field median is zero.
type FieldImpact struct {
	Field                     string   `json:"field" yaml:"field"`
	PublicationRateComparison *float64 `json:"publication_rate_comparison" yaml:"publication_rate_comparison"`
	CitationImpactComparison  *float64 `json:"citation_impact_comparison" yaml:"citation_impact_comparison"`
}

// Impact is the researcher impact summary.
type Impact struct {
	Researcher ResearcherStatistics `json:"researcher_statistics" yaml:"researcher_statistics"`
	Fields     []FieldImpact        `json:"field_impact_analysis" yaml:"field_impact_analysis"`
}

// AnalyzeResearchFields classifies every titled publication of cv into the
// predicted research fields and reports, per field, the publication count
// and the median citation count. Fields are reported in predicted order.
func (s *Stage) AnalyzeResearchFields(ctx context.Context, cv types.Record) ([]FieldMetrics, error) {
	fields := cv.Strings(types.KeyResearchFields)
	if len(fields) == 0 {
		return nil, nil
	}

	citations := make(map[string][]int, len(fields))
	for _, pub := range cv.Records(types.KeyPublications) {
		title := strings.TrimSpace(pub.String("title"))
		if title == "" {
			continue
		}
		matched, err := s.classify(ctx, title, fields)
		if err != nil {
			return nil, err
		}
		count, _ := pub.Int("citation_count")
		for _, f := range matched {
			citations[f] = append(citations[f], count)
		}
	}

	out := make([]FieldMetrics, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldMetrics{
			Field:               f,
			PublicationCount:    len(citations[f]),
			MedianCitationCount: median(citations[f]),
		})
	}
	return out, nil
}

// classify returns the predicted fields the publication belongs to, in
// canonical spelling and without duplicates.
func (s *Stage) classify(ctx context.Context, title string, fields []string) ([]string, error) {
	prompt, err := render(classifyTmpl, struct {
		Title  string
		Fields []string
	}{title, fields})
	if err != nil {
		return nil, fmt.Errorf("rendering classification prompt: %w", err)
	}

	raw, err := s.svc.Generate(ctx, llm.Request{
		Name:        CallClassifyPublication,
		Description: "Classify a publication into research fields",
		System:      classifySystem,
		Prompt:      prompt,
		Schema:      s.schemas.MustGet(schema.TagPublicationFields),
	})
	if err != nil {
		return nil, fmt.Errorf("classifying publication %q: %w", title, err)
	}
	var resp struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("classifying publication %q: %w", title, err)
	}

	var out []string
	for _, got := range resp.Fields {
		for _, f := range fields {
			if strings.EqualFold(strings.TrimSpace(got), f) && !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// EstimateFieldStatistics asks for the typical output of researchers in
// each field. No call is made for an empty list.
func (s *Stage) EstimateFieldStatistics(ctx context.Context, fields []string) ([]FieldStatistics, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	prompt, err := render(fieldStatsTmpl, struct{ Fields []string }{fields})
	if err != nil {
		return nil, fmt.Errorf("rendering field statistics prompt: %w", err)
	}

	item, err := s.schemas.Get(schema.TagFieldStatistics)
	if err != nil {
		return nil, err
	}
	raw, err := s.svc.Generate(ctx, llm.Request{
		Name:        CallFieldStatistics,
		Description: "Estimate median publication and citation counts for researchers in each field",
		System:      fieldStatsSystem,
		Prompt:      prompt,
		Schema:      schema.Wrap(types.KeyFieldStatistics, item),
	})
	if err != nil {
		return nil, fmt.Errorf("estimating field statistics: %w", err)
	}
	var resp struct {
		Stats []FieldStatistics `json:"field_statistics"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("estimating field statistics: %w", err)
	}
	return resp.Stats, nil
}

// ResearcherImpact computes publication totals for cv and compares them with
// stats. Publications without a year do not count toward years active.
func ResearcherImpact(cv types.Record, stats []FieldStatistics) Impact {
	pubs := cv.Records(types.KeyPublications)
	rs := ResearcherStatistics{TotalPublications: len(pubs)}

	var years []int
	for _, p := range pubs {
		if n, ok := p.Int("citation_count"); ok {
			rs.TotalCitations += n
		}
		if y, ok := p.Int("year"); ok && y > 0 {
			years = append(years, y)
		}
	}
	if len(years) > 0 {
		rs.YearsActive = slices.Max(years) - slices.Min(years) + 1
		rs.AnnualPublicationRate = float64(rs.TotalPublications) / float64(rs.YearsActive)
	}

	impact := Impact{Researcher: rs, Fields: make([]FieldImpact, 0, len(stats))}
	for _, st := range stats {
		impact.Fields = append(impact.Fields, FieldImpact{
			Field:                     st.Field,
			PublicationRateComparison: ratio(rs.AnnualPublicationRate, st.MedianAnnualPublicationCount),
			CitationImpactComparison:  ratio(float64(rs.TotalCitations), float64(st.MedianCareerCitationCount)),
		})
	}
	return impact
}

// Analyze labels every group of cv and adds the research-field metrics,
// field statistics and researcher impact.
func (s *Stage) Analyze(ctx context.Context, cv types.Record) (types.Record, error) {
	out, err := s.Label(ctx, cv)
	if err != nil {
		return nil, err
	}

	metrics, err := s.AnalyzeResearchFields(ctx, out)
	if err != nil {
		return nil, err
	}
	stats, err := s.EstimateFieldStatistics(ctx, out.Strings(types.KeyResearchFields))
	if err != nil {
		return nil, err
	}
	impact := ResearcherImpact(out, stats)

	for key, v := range map[string]any{
		types.KeyResearchFieldMetrics: orEmpty(metrics),
		types.KeyFieldStatistics:      orEmpty(stats),
		types.KeyResearcherImpact:     impact,
	} {
		val, err := types.JSONValue(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", key, err)
		}
		out[key] = val
	}

	s.logger.Info("analyzed CV",
		zap.Int("fields", len(metrics)),
		zap.Int("total_citations", impact.Researcher.TotalCitations),
		zap.Int("years_active", impact.Researcher.YearsActive))
	return out, nil
}

// Insights returns a narrative assessment of the analyzed record.
func (s *Stage) Insights(ctx context.Context, cv types.Record) (string, error) {
	if s.text == nil {
		return "", errors.New("insights: no text service configured")
	}
	prompt, err := render(insightsTmpl, struct{ CV types.Record }{cv})
	if err != nil {
		return "", fmt.Errorf("rendering insights prompt: %w", err)
	}
	text, err := s.text.GenerateText(ctx, insightsSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("generating insights: %w", err)
	}
	return text, nil
}

// median returns the median of xs truncated to an int, or 0 for none.
func median(xs []int) int {
	if len(xs) == 0 {
		return 0
	}
	s := slices.Clone(xs)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func ratio(a, b float64) *float64 {
	if b == 0 {
		return nil
	}
	r := a / b
	return &r
}

func orEmpty[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
