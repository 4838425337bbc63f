// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Rating is the per-category likelihood that an applicant qualifies.
type Rating string

const (
	RatingLow    Rating = "low"
	RatingMedium Rating = "medium"
	RatingHigh   Rating = "high"
)

// ParseRating normalizes s into a Rating. It accepts any letter case and
// surrounding whitespace.
func ParseRating(s string) (Rating, error) {
	switch Rating(strings.ToLower(strings.TrimSpace(s))) {
	case RatingLow:
		return RatingLow, nil
	case RatingMedium:
		return RatingMedium, nil
	case RatingHigh:
		return RatingHigh, nil
	default:
		return "", fmt.Errorf("invalid rating %q: want low, medium or high", s)
	}
}

// CategoryResult is the rating of one evaluation category with its
// justification and the accounting of which record data was used.
type CategoryResult struct {
	Category          string `json:"category" yaml:"category"`
	Rating            Rating `json:"rating" yaml:"rating"`
	Justification     string `json:"justification" yaml:"justification"`
	InformationUsed   []any  `json:"information_used" yaml:"information_used"`
	InformationUnused []any  `json:"information_unused" yaml:"information_unused"`
}

// RatingCounts holds the number of categories at each rating level.
type RatingCounts struct {
	Low    int `json:"low" yaml:"low"`
	Medium int `json:"medium" yaml:"medium"`
	High   int `json:"high" yaml:"high"`
}

// Assessment is the deterministic overall verdict derived from the category ratings.
type Assessment struct {
	Overall                Rating       `json:"overall" yaml:"overall"`
	Counts                 RatingCounts `json:"rating_counts" yaml:"rating_counts"`
	QualifyingAchievements []any        `json:"qualifying_achievements" yaml:"qualifying_achievements"`
}

// Evaluation is the final output of the rating stage.
type Evaluation struct {
	Name            string           `json:"name" yaml:"name"`
	Email           string           `json:"email" yaml:"email"`
	Education       []Record         `json:"education" yaml:"education"`
	CategoryRatings []CategoryResult `json:"category_ratings" yaml:"category_ratings"`
	Assessment      Assessment       `json:"assessment" yaml:"assessment"`
}
