// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "github.com/pdiddy/cv-evaluator/pkg/types"

// Count tallies the ratings of results.
func Count(results []types.CategoryResult) types.RatingCounts {
	var c types.RatingCounts
	for _, r := range results {
		switch r.Rating {
		case types.RatingHigh:
			c.High++
		case types.RatingMedium:
			c.Medium++
		case types.RatingLow:
			c.Low++
		}
	}
	return c
}

// Overall applies the threshold rule: high with at least three high
// ratings or five medium-or-high ones, medium with at least one high or
// three medium, low otherwise.
func Overall(c types.RatingCounts) types.Rating {
	switch {
	case c.High >= 3 || c.High+c.Medium >= 5:
		return types.RatingHigh
	case c.High >= 1 || c.Medium >= 3:
		return types.RatingMedium
	default:
		return types.RatingLow
	}
}

// Qualifying concatenates the InformationUsed lists of categories rated
// medium or high, in order and without deduplication.
func Qualifying(results []types.CategoryResult) []any {
	out := []any{}
	for _, r := range results {
		if r.Rating == types.RatingMedium || r.Rating == types.RatingHigh {
			out = append(out, r.InformationUsed...)
		}
	}
	return out
}

// Assess derives the overall assessment from the category results.
func Assess(results []types.CategoryResult) types.Assessment {
	c := Count(results)
	return types.Assessment{
		Overall:                Overall(c),
		Counts:                 c,
		QualifyingAchievements: Qualifying(results),
	}
}
