// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package label attaches judgments to CV records: an "extraordinary" label
// per record group, research-field metrics, field statistics, a researcher
// impact summary and narrative insights.
package label

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/schema"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Group is one labeled section of a CV record.
type Group struct {
	// Key is the CV record key holding the section.
	Key string
	// Tag selects the item schema in the registry.
	Tag string
	// Call is the request name; ListKey wraps the labeled array.
	Call    string
	ListKey string
	// Section names the data in the prompt.
	Section  string
	System   string
	Criteria string
	// WithName adds the applicant name to the prompt.
	WithName bool
}

// Groups lists the labeled sections in labeling order.
var Groups = []Group{
	{
		Key: types.KeyEducation, Tag: schema.TagEducation,
		Call: "label_education", ListKey: "labeled_education",
		Section:  "education",
		System:   "You are an expert in evaluating academic credentials.",
		Criteria: "it is from a prestigious institution or involves a notable degree",
	},
	{
		Key: types.KeyAwards, Tag: schema.TagAward,
		Call: "label_awards", ListKey: "labeled_awards",
		Section:  "awards",
		System:   "You are an expert in evaluating academic and scientific awards.",
		Criteria: "it is a high-stakes or prestigious award",
	},
	{
		Key: types.KeyPublications, Tag: schema.TagPublication,
		Call: "label_publications", ListKey: "labeled_publications",
		Section:  "publications",
		System:   "You are an expert in evaluating academic publications.",
		Criteria: "it has a high citation count or is published in an important journal or conference",
	},
	{
		Key: types.KeyEmploymentHistory, Tag: schema.TagEmployment,
		Call: "label_employment", ListKey: "labeled_employment",
		Section:  "employment",
		System:   "You are an expert in evaluating academic and research positions.",
		Criteria: "it is a high-stakes or prestigious position",
	},
	{
		Key: types.KeyMediaCoverage, Tag: schema.TagMediaCoverage,
		Call: "label_media_coverage", ListKey: "labeled_media_coverage",
		Section:  "media coverage",
		System:   "You are an expert in analyzing media coverage of scientific researchers.",
		Criteria: "the report is directly related to the researcher and their work, appears positive or highlights the researcher's achievements, and comes from a reputable source",
		WithName: true,
	},
}

// labelOverwrite lets a label replace an existing label; every other field
// of the original record wins.
var labelOverwrite = map[string]bool{types.KeyExtraordinary: true}

// Stage labels and analyzes enriched CV records.
type Stage struct {
	svc     llm.Service
	text    llm.Text
	schemas *schema.Registry
	logger  *zap.Logger
}

// NewStage returns a labeling stage. text may be nil when insights are not
// needed.
func NewStage(svc llm.Service, text llm.Text, log *zap.Logger) *Stage {
	return &Stage{
		svc:     svc,
		text:    text,
		schemas: schema.Default(),
		logger:  logger.ForStage(logger.OrNop(log), "labeling"),
	}
}

// Label returns a copy of cv with every group labeled. The input is not
// modified.
func (s *Stage) Label(ctx context.Context, cv types.Record) (types.Record, error) {
	out := cv.Clone()
	name := cv.String(types.KeyName)
	for _, g := range Groups {
		labeled, err := s.LabelGroup(ctx, g, out[g.Key], name)
		if err != nil {
			return nil, err
		}
		if labeled != nil {
			out[g.Key] = labeled
		}
	}
	return out, nil
}

// LabelGroup labels the object entries of section. The labels are merged
// by position into copies of the original entries, so no original field is
// lost. Non-object entries stay in place unlabeled. An empty section
// returns nil without a call.
func (s *Stage) LabelGroup(ctx context.Context, g Group, section any, name string) ([]any, error) {
	raw, _ := section.([]any)
	if rs, ok := section.([]types.Record); ok {
		raw = types.RecordsValue(rs)
	}

	var (
		items   []types.Record
		indexes []int
	)
	for i, e := range raw {
		if r := asRecord(e); r != nil {
			items = append(items, r)
			indexes = append(indexes, i)
		}
	}
	if len(items) == 0 {
		s.logger.Debug("skipping empty section", zap.String("section", g.Key))
		return nil, nil
	}

	item, err := s.schemas.Labeled(g.Tag)
	if err != nil {
		return nil, err
	}
	data := struct {
		Section, Criteria, Name string
		Items                   []types.Record
	}{Section: g.Section, Criteria: g.Criteria, Items: items}
	if g.WithName {
		data.Name = name
	}
	prompt, err := render(labelTmpl, data)
	if err != nil {
		return nil, fmt.Errorf("rendering %s prompt: %w", g.Call, err)
	}

	resp, err := s.svc.Generate(ctx, llm.Request{
		Name:        g.Call,
		Description: fmt.Sprintf("Label %s records as extraordinary", g.Section),
		System:      g.System,
		Prompt:      prompt,
		Schema:      schema.Wrap(g.ListKey, item),
	})
	if err != nil {
		return nil, fmt.Errorf("labeling %s: %w", g.Key, err)
	}
	labels, err := decodeList(resp, g.ListKey)
	if err != nil {
		return nil, fmt.Errorf("labeling %s: %w", g.Key, err)
	}
	if len(labels) != len(items) {
		s.logger.Warn("label count differs from record count",
			zap.String("section", g.Key),
			zap.Int("records", len(items)),
			zap.Int("labels", len(labels)))
	}

	out := cloneSlice(raw)
	for j, idx := range indexes {
		if j >= len(labels) {
			break
		}
		out[idx] = types.Merge(items[j], labels[j], labelOverwrite)
	}

	s.logger.Info("labeled section",
		zap.String("section", g.Key),
		zap.Int("records", len(items)),
		zap.Int("extraordinary", countExtraordinary(out)))
	return out, nil
}

func asRecord(v any) types.Record {
	switch t := v.(type) {
	case types.Record:
		return t
	case map[string]any:
		return types.Record(t)
	default:
		return nil
	}
}

func cloneSlice(raw []any) []any {
	r := types.Record{"v": raw}.Clone()
	s, _ := r["v"].([]any)
	return s
}

func decodeList(raw json.RawMessage, key string) ([]types.Record, error) {
	r, err := types.ParseRecord(raw)
	if err != nil {
		return nil, err
	}
	return r.Records(key), nil
}

func countExtraordinary(items []any) int {
	n := 0
	for _, r := range types.AsRecords(items) {
		if r.String(types.KeyExtraordinary) == "yes" {
			n++
		}
	}
	return n
}
