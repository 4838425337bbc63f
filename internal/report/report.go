// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders an evaluation for people and for other programs:
// a markdown summary, its HTML rendering, and JSON or YAML documents.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// Output formats accepted by Write.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var summaryTmpl = template.Must(template.New("summary").Funcs(template.FuncMap{
	"title":     capitalize,
	"education": educationLine,
	"item":      itemText,
	"cell":      tableCell,
}).Parse(`# O-1A Evaluation Summary for {{.Eval.Name}}

## Applicant Information
- Name: {{.Eval.Name}}
- Email: {{.Eval.Email}}

## Education
{{range .Eval.Education}}- {{education .}}
{{else}}- None listed
{{end}}
## Category Evaluations

| Category | Rating |
|---|---|
{{range .Eval.CategoryRatings}}| {{cell .Category}} | {{title (print .Rating)}} |
{{end}}
{{range .Eval.CategoryRatings}}### {{.Category}}
- Rating: {{title (print .Rating)}}
- Justification: {{.Justification}}

{{end}}## Overall Assessment
- Overall: {{title (print .Eval.Assessment.Overall)}}
- High: {{.Eval.Assessment.Counts.High}}, Medium: {{.Eval.Assessment.Counts.Medium}}, Low: {{.Eval.Assessment.Counts.Low}}

### Qualifying Achievements
{{range .Eval.Assessment.QualifyingAchievements}}- {{item .}}
{{else}}- None
{{end}}{{if .Insights}}
## Insights
{{.Insights}}
{{end}}`))

// Markdown renders the evaluation summary. insights may be empty.
func Markdown(eval types.Evaluation, insights string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Eval     types.Evaluation
		Insights string
	}{eval, strings.TrimSpace(insights)}
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering summary: %w", err)
	}
	return buf.String(), nil
}

// educationLine formats "Degree from School (Year)", leaving out the
// parts the record lacks.
func educationLine(r types.Record) string {
	degree, school, year := r.String("degree"), r.String("school"), r.String("year")
	var b strings.Builder
	switch {
	case degree != "" && school != "":
		b.WriteString(degree + " from " + school)
	case degree != "":
		b.WriteString(degree)
	case school != "":
		b.WriteString(school)
	default:
		b.WriteString("Unspecified")
	}
	if year != "" {
		b.WriteString(" (" + year + ")")
	}
	return b.String()
}

// itemText renders one achievement entry on a single line.
func itemText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "null"
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts markdown into a standalone HTML page.
func RenderHTML(w io.Writer, title, md string) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return fmt.Errorf("converting markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		template.HTMLEscapeString(title), body.String())
	return err
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// WriteYAML writes v as YAML. Values are passed through their JSON form so
// that json tags and generic records render the same way in both formats.
func WriteYAML(w io.Writer, v any) error {
	generic, err := types.JSONValue(v)
	if err != nil {
		return fmt.Errorf("normalizing for YAML: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// Write writes eval in format. Markdown and HTML include insights.
func Write(w io.Writer, format string, eval types.Evaluation, insights string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return WriteJSON(w, eval)
	case FormatYAML, "yml":
		return WriteYAML(w, eval)
	case FormatMarkdown, "md":
		md, err := Markdown(eval, insights)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case FormatHTML:
		md, err := Markdown(eval, insights)
		if err != nil {
			return err
		}
		return RenderHTML(w, "O-1A Evaluation: "+eval.Name, md)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
