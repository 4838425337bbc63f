// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw CV text into a structured record using the
// text-understanding service.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/schema"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Call names sent to the text-understanding service.
const (
	CallParseCV        = "extract_cv_data"
	CallResearchFields = "predict_research_fields"
)

// MaxResearchFields bounds the predicted research fields.
const MaxResearchFields = 3

// ErrEmptyDocument is returned for text with no content.
var ErrEmptyDocument = errors.New("document text is empty")

// Stage extracts structured CV records.
type Stage struct {
	svc     llm.Service
	schemas *schema.Registry
	logger  *zap.Logger
}

// NewStage returns an extraction stage using svc and the default schema
// registry.
func NewStage(svc llm.Service, log *zap.Logger) *Stage {
	return &Stage{
		svc:     svc,
		schemas: schema.Default(),
		logger:  logger.ForStage(logger.OrNop(log), "extraction"),
	}
}

// Run parses text into a CV record and adds the predicted research fields
// under types.KeyResearchFields.
func (s *Stage) Run(ctx context.Context, text string) (types.Record, error) {
	cv, err := s.ParseCV(ctx, text)
	if err != nil {
		return nil, err
	}
	fields, err := s.PredictResearchFields(ctx, text)
	if err != nil {
		return nil, err
	}
	cv[types.KeyResearchFields] = stringsValue(fields)

	s.logger.Info("extracted CV",
		zap.String("name", cv.String(types.KeyName)),
		zap.Int("publications", len(cv.Records(types.KeyPublications))),
		zap.Strings("research_fields", fields))
	return cv, nil
}

// ParseCV extracts the fields of the cv schema from text.
func (s *Stage) ParseCV(ctx context.Context, text string) (types.Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	prompt, err := render(parseCVTmpl, promptData{Text: text})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := s.svc.Generate(ctx, llm.Request{
		Name:        CallParseCV,
		Description: "Extracts structured data from a CV",
		System:      parseCVSystem,
		Prompt:      prompt,
		Schema:      s.schemas.MustGet(schema.TagCV),
	})
	if err != nil {
		return nil, fmt.Errorf("parsing CV: %w", err)
	}

	cv, err := types.ParseRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing CV: %w", err)
	}
	return cv, nil
}

// PredictResearchFields returns up to MaxResearchFields research-field
// keywords for the person described by text.
func (s *Stage) PredictResearchFields(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	prompt, err := render(researchFieldsTmpl, promptData{Text: text, Max: MaxResearchFields})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	raw, err := s.svc.Generate(ctx, llm.Request{
		Name:        CallResearchFields,
		Description: "Predicts research fields based on CV content",
		System:      researchFieldsSystem,
		Prompt:      prompt,
		Schema:      s.schemas.MustGet(schema.TagResearchFields),
	})
	if err != nil {
		return nil, fmt.Errorf("predicting research fields: %w", err)
	}

	var out struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("predicting research fields: %w", err)
	}

	fields := make([]string, 0, MaxResearchFields)
	for _, f := range out.Fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if len(fields) == MaxResearchFields {
			s.logger.Debug("dropping extra research field", zap.String("field", f))
			continue
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func stringsValue(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
