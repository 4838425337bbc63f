// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"text/template"
)

const (
	parseCVSystem = "You are a CV parsing expert. Extract the requested information accurately from the given CV text. Leave fields empty if the information is not available."

	researchFieldsSystem = "You are an expert in academic research fields. Predict the main research areas based on the given CV."
)

var parseCVTmpl = template.Must(template.New("parse_cv").Parse(`Parse the following CV and extract key information, including additional fields such as patents, licenses, copyrights, h-index, major awards, association memberships, conference activities, major contributions, media coverage, employment history, and highest salary. Leave fields empty if not available.

For every publication, copy the title exactly as printed and list all authors in the printed order.
For media coverage, record one entry per article or report about the person.

CV:
{{.Text}}
`))

var researchFieldsTmpl = template.Must(template.New("research_fields").Parse(`Based on the following CV, predict the person's main research field(s) in up to {{.Max}} keywords.

CV:
{{.Text}}
`))

type promptData struct {
	Text string
	Max  int
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
