// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "github.com/pdiddy/cv-evaluator/pkg/types"

// Category is one O-1A evaluation category and the CV sections it reads.
type Category struct {
	Name     string
	Sections []string
}

// Categories lists the evaluation categories in evaluation order.
var Categories = []Category{
	{Name: "Awards", Sections: []string{types.KeyAwards, types.KeyMajorAwards}},
	{Name: "Membership", Sections: []string{types.KeyAcademicMembership, types.KeyAssociationMemberships}},
	{Name: "Press", Sections: []string{types.KeyMediaCoverage}},
	{Name: "Judging", Sections: []string{types.KeyConferenceActivities}},
	{Name: "Original contribution", Sections: []string{types.KeyMajorContributions}},
	{Name: "Scholarly articles", Sections: []string{types.KeyPublications}},
	{Name: "Critical employment", Sections: []string{types.KeyEmploymentHistory}},
	{Name: "High remuneration", Sections: []string{types.KeyHighestSalary}},
}

// Lookup returns the category with the given name.
func Lookup(name string) (Category, bool) {
	for _, c := range Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Data returns the category's view of cv: the concatenated array sections,
// or the scalar sections wrapped as single elements.
func (c Category) Data(cv types.Record) []any {
	out := []any{}
	for _, key := range c.Sections {
		switch v := cv[key].(type) {
		case []any:
			out = append(out, v...)
		case []types.Record:
			out = append(out, types.RecordsValue(v)...)
		case []string:
			for _, s := range v {
				out = append(out, s)
			}
		default:
			if key == types.KeyHighestSalary {
				out = append(out, v)
			}
		}
	}
	return out
}
