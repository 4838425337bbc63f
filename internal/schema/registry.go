// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"fmt"
	"slices"
	"sync"
)

// Record-type tags.
const (
	TagCV                 = "cv"
	TagResearchFields     = "research_fields"
	TagEducation          = "education"
	TagAward              = "award"
	TagPublication        = "publication"
	TagPatent             = "patent"
	TagLicense            = "license"
	TagCopyright          = "copyright"
	TagConferenceActivity = "conference_activity"
	TagEmployment         = "employment"
	TagMediaCoverage      = "media_coverage"
	TagPublicationFields  = "publication_fields"
	TagFieldStatistics    = "field_statistics"
	TagCategoryRating     = "category_rating"
)

// LabelKey is the property added by Labeled.
const LabelKey = "extraordinary"

// Registry maps record-type tags to schemas.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register stores s under tag, replacing any previous schema.
func (r *Registry) Register(tag string, s *Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[tag] = s.Clone()
}

// Get returns a copy of the schema registered under tag.
func (r *Registry) Get(tag string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[tag]
	if !ok {
		return nil, fmt.Errorf("no schema registered for %q", tag)
	}
	return s.Clone(), nil
}

// MustGet is Get for tags known to be registered.
func (r *Registry) MustGet(tag string) *Schema {
	s, err := r.Get(tag)
	if err != nil {
		panic(err)
	}
	return s
}

// Tags returns the registered tags sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// Labeled returns the schema for tag extended with the extraordinary label.
func (r *Registry) Labeled(tag string) (*Schema, error) {
	s, err := r.Get(tag)
	if err != nil {
		return nil, err
	}
	return s.With(Prop{Name: LabelKey, Schema: Enum(`"yes" if the record is extraordinary, "no" if it is not, "" when the data is insufficient`, "yes", "no", "")}), nil
}

// ListOf wraps the schema for tag in an object holding an array under key.
func (r *Registry) ListOf(tag, key string) (*Schema, error) {
	s, err := r.Get(tag)
	if err != nil {
		return nil, err
	}
	return Wrap(key, s), nil
}

// Wrap builds an object with a single required array property key of item.
func Wrap(key string, item *Schema) *Schema {
	return Object("", Prop{Name: key, Schema: Array("", item)})
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	registerDefaults(r)
	return r
})

// Default returns the shared registry of CV record types.
func Default() *Registry {
	return defaultRegistry()
}

func registerDefaults(r *Registry) {
	year := Null(Integer("four-digit year"))

	education := Object("one degree",
		Prop{Name: "school", Schema: String("institution name")},
		Prop{Name: "year", Schema: year},
		Prop{Name: "degree", Schema: String("degree name")},
	)
	award := Object("one award or honour",
		Prop{Name: "award", Schema: String("award name")},
		Prop{Name: "year", Schema: year},
	)
	publication := Object("one publication",
		Prop{Name: "title", Schema: String("publication title as written")},
		Prop{Name: "venue", Schema: String("journal, conference or publisher")},
		Prop{Name: "year", Schema: year},
		Prop{Name: "doi", Schema: Null(String("DOI when printed"))},
		Prop{Name: "all_authors", Schema: Array("authors in listed order", String(""))},
		Prop{Name: "citation_count", Schema: Null(Integer("citations, when known")), Optional: true},
	)
	patent := Object("one patent",
		Prop{Name: "title", Schema: String("")},
		Prop{Name: "year", Schema: year},
		Prop{Name: "number", Schema: String("patent number")},
	)
	license := Object("one professional license",
		Prop{Name: "name", Schema: String("")},
		Prop{Name: "year", Schema: year},
		Prop{Name: "issuer", Schema: String("")},
	)
	copyright := Object("one copyright registration",
		Prop{Name: "title", Schema: String("")},
		Prop{Name: "year", Schema: year},
		Prop{Name: "number", Schema: String("registration number")},
	)
	conference := Object("one judging or review activity",
		Prop{Name: "activity_type", Schema: String(`e.g. "panel", "peer review", "VC fund review"`)},
		Prop{Name: "conference_name", Schema: Null(String(""))},
		Prop{Name: "year", Schema: year},
		Prop{Name: "details", Schema: String("")},
	)
	employment := Object("one position",
		Prop{Name: "organization", Schema: String("")},
		Prop{Name: "role", Schema: String("")},
		Prop{Name: "year_start", Schema: year},
		Prop{Name: "year_end", Schema: Null(Integer("null while current"))},
		Prop{Name: "is_critical_capacity", Schema: Boolean("leading or critical role for the organization")},
	)
	media := Object("one media report about the person",
		Prop{Name: "media_name", Schema: String("outlet name")},
		Prop{Name: "media_domain", Schema: String("outlet web domain")},
		Prop{Name: "title", Schema: String("report title")},
		Prop{Name: "url_source", Schema: String("report URL")},
		Prop{Name: "description", Schema: String("")},
		Prop{Name: "published_time", Schema: String("publication date as written")},
	)
	strList := func(desc string) *Schema { return Array(desc, String("")) }

	cv := Object("structured CV data; leave fields empty when the CV does not state them",
		Prop{Name: "name", Schema: String("full name")},
		Prop{Name: "email", Schema: String("")},
		Prop{Name: "education", Schema: Array("", education)},
		Prop{Name: "awards", Schema: Array("", award)},
		Prop{Name: "academic_membership", Schema: strList("academic society memberships")},
		Prop{Name: "publications", Schema: Array("", publication)},
		Prop{Name: "patents", Schema: Array("", patent)},
		Prop{Name: "licenses", Schema: Array("", license)},
		Prop{Name: "copyrights", Schema: Array("", copyright)},
		Prop{Name: "h_index", Schema: Null(Integer(""))},
		Prop{Name: "major_awards", Schema: Array("internationally recognized prizes", award)},
		Prop{Name: "association_memberships", Schema: strList("memberships requiring outstanding achievement")},
		Prop{Name: "conference_activities", Schema: Array("", conference)},
		Prop{Name: "major_contributions", Schema: strList("original contributions of major significance")},
		Prop{Name: "media_coverage", Schema: Array("", media)},
		Prop{Name: "employment_history", Schema: Array("", employment)},
		Prop{Name: "highest_salary", Schema: Null(Number("highest annual salary"))},
	)

	fields := Object("",
		Prop{Name: "fields", Schema: Array("research fields", String(""))},
	)
	stats := Object("typical output of a researcher in one field",
		Prop{Name: "field", Schema: String("")},
		Prop{Name: "median_annual_publication_count", Schema: Number("")},
		Prop{Name: "median_career_citation_count", Schema: Integer("")},
	)
	information := Array("", AnyOf("a field name or a cited record", String(""), Object("")))
	rating := Object("rating of one evaluation category",
		Prop{Name: "rating", Schema: Enum("", "low", "medium", "high")},
		Prop{Name: "justification", Schema: String("at most 200 words")},
		Prop{Name: "information_used", Schema: information},
		Prop{Name: "information_unused", Schema: information},
	)

	r.Register(TagEducation, education)
	r.Register(TagAward, award)
	r.Register(TagPublication, publication)
	r.Register(TagPatent, patent)
	r.Register(TagLicense, license)
	r.Register(TagCopyright, copyright)
	r.Register(TagConferenceActivity, conference)
	r.Register(TagEmployment, employment)
	r.Register(TagMediaCoverage, media)
	r.Register(TagCV, cv)
	r.Register(TagResearchFields, fields)
	r.Register(TagPublicationFields, fields)
	r.Register(TagFieldStatistics, stats)
	r.Register(TagCategoryRating, rating)
}
