// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fuzzy decides whether two noisy strings name the same thing.
// Similarity is the case-insensitive indel ratio on a 0-100 scale:
// 100 * 2*LCS(a, b) / (len(a) + len(b)), counted in runes.
package fuzzy

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

const (
	// TitleThreshold is the minimum similarity for two publication titles.
	TitleThreshold = 80

	// AuthorThreshold is the stricter similarity used as the last author check.
	AuthorThreshold = 85
)

// Ratio returns the similarity of a and b in [0, 100], ignoring letter case.
// Two empty strings are identical.
func Ratio(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return int(math.Round(100 * float64(2*lcs) / float64(total)))
}

// Similar reports whether Ratio(a, b) reaches threshold.
func Similar(a, b string, threshold int) bool {
	return Ratio(a, b) >= threshold
}

// initialLastRe matches "Yann LeCun", "Y LeCun" and "Y. LeCun", capturing
// the first letter of the given name and the last name.
var initialLastRe = regexp.MustCompile(`^([\p{L}\p{N}])[\p{L}\p{N}]*\.? ([\p{L}\p{N}]+)$`)

// AuthorMatches applies the author-name policy: identical names match;
// otherwise a given name of the form "Initial[.] Lastname" matches a
// candidate "Firstname Lastname" sharing the initial and last name;
// otherwise the names must be Similar at AuthorThreshold.
func AuthorMatches(candidate, given string) bool {
	c := normalizeName(candidate)
	g := normalizeName(given)
	if c == "" || g == "" {
		return false
	}
	if c == g {
		return true
	}

	if m := initialLastRe.FindStringSubmatch(g); m != nil {
		pattern := `^` + regexp.QuoteMeta(m[1]) + `[\p{L}\p{N}]*\.? ` + regexp.QuoteMeta(m[2]) + `$`
		if re, err := regexp.Compile(pattern); err == nil && re.MatchString(c) {
			return true
		}
	}

	return Similar(c, g, AuthorThreshold)
}

// normalizeName lowercases and collapses whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Policy holds the configurable parts of author validation.
type Policy struct {
	// SkipAuthorValidation accepts every candidate author. It reproduces an
	// older behaviour and is off unless explicitly configured.
	SkipAuthorValidation bool
}

// Accept reports whether the candidate author is accepted for the given name.
func (p Policy) Accept(candidate, given string) bool {
	if p.SkipAuthorValidation {
		return true
	}
	return AuthorMatches(candidate, given)
}
