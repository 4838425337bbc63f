// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package label

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	},
	"join": strings.Join,
}

var labelTmpl = template.Must(template.New("label").Funcs(funcs).Parse(`Analyze the following {{.Section}} data{{if .Name}} for {{.Name}}{{end}}. Label each record with "extraordinary" set to:
- "yes" if {{.Criteria}}
- "no" if it clearly does not
- "" (empty string) if the information is missing or insufficient to decide

Return every record in the same order, copying its fields unchanged and adding the label.

{{.Section}} data: {{json .Items}}
`))

var classifyTmpl = template.Must(template.New("classify").Funcs(funcs).Parse(`Classify the following publication into one or more of these research fields: {{join .Fields ", "}}. Only use fields from that list.

Publication title: {{.Title}}
`))

var fieldStatsTmpl = template.Must(template.New("field_stats").Funcs(funcs).Parse(`For each of the following research fields, estimate the median annual publication count and median career citation count for researchers in that field. Consider that:
1. Different fields may have varying publication rates and citation patterns.
2. These are rough estimates for an average researcher over their career.
3. Some fields may have higher publication rates but lower citation counts, or vice versa.

Research fields: {{json .Fields}}

Provide your best estimate for each field, based on general trends in academia.
`))

var insightsTmpl = template.Must(template.New("insights").Funcs(funcs).Parse(`Generate insights about the researcher's extraordinary capabilities and contributions to the science research community based on the following enriched CV data:
1. Analyze their education, awards, publications, and employment history.
2. Consider their media coverage and its implications for their public profile and impact.
3. Highlight any areas where they significantly outperform or have made groundbreaking contributions.
4. Consider their overall impact across multiple research fields if applicable.

Enriched CV data: {{json .CV}}
`))

const (
	classifySystem   = "You are an expert in classifying academic publications into research fields."
	fieldStatsSystem = "You are an expert in academic research trends across various fields."
	insightsSystem   = "You are an expert in analyzing academic and research profiles. Provide concise and meaningful insights about the researcher's extraordinary capabilities and contributions, including their impact in different research fields and public recognition."
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
