// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the cv-evaluator pipeline:
// the JSON record threaded through every stage, the evaluation results and
// the stage configurations.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Canonical top-level keys of a CV record. Stage outputs are strict
// supersets of their inputs, so later stages add keys but never remove these.
const (
	KeyName                   = "name"
	KeyEmail                  = "email"
	KeyEducation              = "education"
	KeyAwards                 = "awards"
	KeyPublications           = "publications"
	KeyEmploymentHistory      = "employment_history"
	KeyMediaCoverage          = "media_coverage"
	KeyAcademicMembership     = "academic_membership"
	KeyMajorAwards            = "major_awards"
	KeyAssociationMemberships = "association_memberships"
	KeyConferenceActivities   = "conference_activities"
	KeyMajorContributions     = "major_contributions"
	KeyHighestSalary          = "highest_salary"
	KeyResearchFields         = "predicted_research_fields"
)

// Keys added by the labeling stage.
const (
	KeyExtraordinary        = "extraordinary"
	KeyResearchFieldMetrics = "research_field_metrics"
	KeyFieldStatistics      = "field_statistics"
	KeyResearcherImpact     = "researcher_impact"
)

// EnrichmentKeys lists the bibliographic keys a lookup match is allowed to
// overwrite when they already exist on a publication. Every other key of the
// match is only added when absent.
var EnrichmentKeys = map[string]bool{
	"doi":                  true,
	"year":                 true,
	"citation_count":       true,
	"venue":                true,
	"venue_id":             true,
	"venue_name":           true,
	"venue_type":           true,
	"venue_url":            true,
	"paper_id":             true,
	"matched_title":        true,
	"bibliographic_source": true,
}

// Record is a JSON object flowing between pipeline stages. Values hold the
// shapes produced by encoding/json: string, float64, bool, nil, []any and
// map[string]any (or nested Record).
type Record map[string]any

// ParseRecord decodes a JSON object into a Record.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("decoding record: not a JSON object")
	}
	return r, nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return Record(t).Clone()
	case []Record:
		out := make([]any, len(t))
		for i, r := range t {
			out[i] = r.Clone()
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

// Keys returns the record's top-level keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value at key rendered as a string, or "" when absent or null.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the numeric value at key truncated to int. The boolean reports
// whether a number (or numeric string) was present.
func (r Record) Int(key string) (int, bool) {
	switch t := r[key].(type) {
	case float64:
		return int(math.Round(t)), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return int(math.Round(n)), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Records returns the array at key as records. Non-object elements are skipped.
func (r Record) Records(key string) []Record {
	return AsRecords(r[key])
}

// Strings returns the array at key as strings. Non-string elements are
// rendered with fmt.
func (r Record) Strings(key string) []string {
	var out []string
	switch t := r[key].(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, e := range t {
			if e == nil {
				continue
			}
			if s, ok := e.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(e))
		}
	}
	return out
}

// AsRecords converts a decoded JSON array into records.
func AsRecords(v any) []Record {
	switch t := v.(type) {
	case []Record:
		return t
	case []any:
		out := make([]Record, 0, len(t))
		for _, e := range t {
			switch m := e.(type) {
			case Record:
				out = append(out, m)
			case map[string]any:
				out = append(out, Record(m))
			}
		}
		return out
	default:
		return nil
	}
}

// RecordsValue converts records back to a JSON array value suitable for
// storing under a Record key.
func RecordsValue(records []Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}

// Merge returns a copy of base extended with additions. Keys missing from
// base are added. Keys present in both keep the base value unless the key is
// in overwrite, in which case the addition wins. A null base value counts as
// absent. Nil additions never replace an existing value.
func Merge(base, additions Record, overwrite map[string]bool) Record {
	out := base.Clone()
	if out == nil {
		out = make(Record, len(additions))
	}
	for k, v := range additions {
		if v == nil {
			if _, exists := out[k]; !exists {
				out[k] = nil
			}
			continue
		}
		if cur, exists := out[k]; exists && cur != nil && !overwrite[k] {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// JSONValue converts v into the generic shapes held by a Record by
// round-tripping it through encoding/json.
func JSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return cloneValue(out), nil
}
