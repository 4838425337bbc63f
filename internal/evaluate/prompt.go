// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"bytes"
	"encoding/json"
	"text/template"
)

const evaluateSystem = "You are an expert in evaluating O-1A visa applications. Use only the provided data for your evaluation."

var evaluateTmpl = template.Must(template.New("evaluate").Funcs(template.FuncMap{
	"json": func(v any) (string, error) {
		data, err := json.MarshalIndent(v, "", "  ")
		return string(data), err
	},
}).Parse(`Based solely on the following data for an O-1A visa applicant, evaluate their qualification for the category: {{.Category}}

Relevant data for {{.Category}}:
{{json .Data}}

Additional context:
- For publications and media coverage, consider the 'extraordinary' label, which indicates high citation count, venue reputation, or significance of the coverage.
- For employment, consider the 'is_critical_capacity' and 'extraordinary' fields.
- Do not use any preexisting knowledge about the person, only the provided data.

Provide a rating (low, medium, or high) on the chance that this person is qualified for an O-1A immigration visa in the {{.Category}} category.
Justify your rating in up to 200 words using only the related data provided.
Also list the specific pieces of information you used in your judgment, and those you did not use.
`))

func render(data any) (string, error) {
	var buf bytes.Buffer
	if err := evaluateTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
