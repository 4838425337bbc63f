// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate rates an analyzed CV record against the O-1A categories
// and derives the overall assessment.
package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/schema"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// CallEvaluateCategory is the request name of a category rating.
const CallEvaluateCategory = "evaluate_category"

// ErrInvalidRating is returned when a category rating is not low, medium
// or high.
var ErrInvalidRating = errors.New("invalid category rating")

// Rater rates CV records category by category.
type Rater struct {
	svc     llm.Service
	schemas *schema.Registry
	logger  *zap.Logger
}

// NewRater returns a Rater using svc.
func NewRater(svc llm.Service, log *zap.Logger) *Rater {
	return &Rater{
		svc:     svc,
		schemas: schema.Default(),
		logger:  logger.ForStage(logger.OrNop(log), "rating"),
	}
}

type ratingResponse struct {
	Rating            string `json:"rating"`
	Justification     string `json:"justification"`
	InformationUsed   []any  `json:"information_used"`
	InformationUnused []any  `json:"information_unused"`
}

// EvaluateCategory rates cv in the named category. Every top-level key of
// cv not already listed is appended to InformationUnused.
func (r *Rater) EvaluateCategory(ctx context.Context, category string, cv types.Record) (types.CategoryResult, error) {
	cat, ok := Lookup(category)
	if !ok {
		return types.CategoryResult{}, fmt.Errorf("unknown category %q", category)
	}

	prompt, err := render(struct {
		Category string
		Data     []any
	}{cat.Name, cat.Data(cv)})
	if err != nil {
		return types.CategoryResult{}, fmt.Errorf("rendering %s prompt: %w", cat.Name, err)
	}

	raw, err := r.svc.Generate(ctx, llm.Request{
		Name:        CallEvaluateCategory,
		Description: "Rate the applicant in one O-1A category",
		System:      evaluateSystem,
		Prompt:      prompt,
		Schema:      r.schemas.MustGet(schema.TagCategoryRating),
	})
	if err != nil {
		return types.CategoryResult{}, fmt.Errorf("rating %s: %w", cat.Name, err)
	}

	var resp ratingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return types.CategoryResult{}, fmt.Errorf("rating %s: %w", cat.Name, err)
	}
	rating, err := types.ParseRating(resp.Rating)
	if err != nil {
		return types.CategoryResult{}, fmt.Errorf("rating %s: %w: %v", cat.Name, ErrInvalidRating, err)
	}

	result := types.CategoryResult{
		Category:          cat.Name,
		Rating:            rating,
		Justification:     resp.Justification,
		InformationUsed:   orEmpty(resp.InformationUsed),
		InformationUnused: orEmpty(resp.InformationUnused),
	}
	Augment(&result, cv)

	r.logger.Info("rated category",
		zap.String("category", cat.Name),
		zap.String("rating", string(rating)),
		zap.Int("used", len(result.InformationUsed)))
	return result, nil
}

// EvaluateAll rates every category in order and derives the assessment.
func (r *Rater) EvaluateAll(ctx context.Context, cv types.Record) (types.Evaluation, error) {
	results := make([]types.CategoryResult, 0, len(Categories))
	for _, cat := range Categories {
		res, err := r.EvaluateCategory(ctx, cat.Name, cv)
		if err != nil {
			return types.Evaluation{}, err
		}
		results = append(results, res)
	}

	eval := types.Evaluation{
		Name:            cv.String(types.KeyName),
		Email:           cv.String(types.KeyEmail),
		Education:       cv.Records(types.KeyEducation),
		CategoryRatings: results,
		Assessment:      Assess(results),
	}
	if eval.Education == nil {
		eval.Education = []types.Record{}
	}
	r.logger.Info("evaluation complete", zap.String("overall", string(eval.Assessment.Overall)))
	return eval, nil
}

// Augment leaves every top-level key of cv in exactly one information list.
// Keys the model listed as both used and unused stay used, duplicate unused
// keys are dropped, and keys in neither list are appended to
// InformationUnused. Non-string entries are kept as given.
func Augment(result *types.CategoryResult, cv types.Record) {
	used := make(map[string]bool)
	for _, v := range result.InformationUsed {
		if s, ok := v.(string); ok {
			used[s] = true
		}
	}

	listed := make(map[string]bool, len(used))
	for k := range used {
		listed[k] = true
	}
	unused := make([]any, 0, len(result.InformationUnused))
	for _, v := range result.InformationUnused {
		if s, ok := v.(string); ok {
			if listed[s] {
				continue
			}
			listed[s] = true
		}
		unused = append(unused, v)
	}
	for _, key := range cv.Keys() {
		if !listed[key] {
			unused = append(unused, key)
			listed[key] = true
		}
	}
	result.InformationUnused = unused
}

func orEmpty(xs []any) []any {
	if xs == nil {
		return []any{}
	}
	return xs
}
