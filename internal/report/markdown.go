// Package report renders a ContentCreatorInfo as a Markdown profile.
package report

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/jonathan/creator-persona/internal/types"
)

//go:embed templates/report.md.tmpl
var templateFS embed.FS

// Section headings of the report, in order.
var Headings = []string{
	"## Basic Information",
	"## Business",
	"## Core Values",
	"## Significant Life Events",
	"## Challenges and Learnings",
	"## Achievements",
}

// reportData is the template view: placeholder entries are dropped so an
// empty section shows "Unknown" instead of placeholder text.
type reportData struct {
	FirstName    string
	LastName     string
	FullName     string
	MainLanguage string
	Business     *types.Business
	Values       []types.Value
	LifeEvents   []types.LifeEvent
	Challenges   []types.Challenge
	Achievements []types.Achievement
}

var defaultTemplate = template.Must(newTemplate().ParseFS(templateFS, "templates/report.md.tmpl"))

func newTemplate() *template.Template {
	return template.New("report.md.tmpl").Funcs(template.FuncMap{
		"value":   displayValue,
		"unknown": func() string { return types.UnknownValue },
	})
}

// RenderMarkdown renders info with the built-in template. A nil record
// renders as all "Unknown".
func RenderMarkdown(info *types.ContentCreatorInfo) string {
	var sb strings.Builder
	// The embedded template only reads fields that always exist.
	if err := defaultTemplate.Execute(&sb, buildData(info)); err != nil {
		panic(fmt.Sprintf("report template: %v", err))
	}
	return sb.String()
}

// RenderMarkdownTemplate renders info with the template at templatePath.
func RenderMarkdownTemplate(info *types.ContentCreatorInfo, templatePath string) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return "", &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}

	tmpl, err := newTemplate().Parse(string(content))
	if err != nil {
		return "", &TemplateError{Message: "failed to parse template", Cause: err}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, buildData(info)); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return sb.String(), nil
}

func buildData(info *types.ContentCreatorInfo) reportData {
	if info == nil {
		info = &types.ContentCreatorInfo{}
	}
	data := reportData{
		FirstName:    info.FirstName,
		LastName:     info.LastName,
		FullName:     info.FullName,
		MainLanguage: info.MainLanguage,
	}
	if types.IsPlaceholderText(data.FullName) {
		data.FullName = types.ComposeFullName(info.FirstName, info.LastName)
	}

	if b := info.Business; b != nil && !(types.IsPlaceholderText(b.Name) && types.IsPlaceholderText(b.Description)) {
		data.Business = b
	}
	for _, v := range info.Values {
		if !types.IsPlaceholderText(v.Name) || !types.IsPlaceholderText(v.Origin) {
			data.Values = append(data.Values, v)
		}
	}
	for _, e := range info.LifeEvents {
		if !types.IsPlaceholderText(e.Name) || !types.IsPlaceholderText(e.Description) {
			data.LifeEvents = append(data.LifeEvents, e)
		}
	}
	for _, c := range info.Challenges {
		if !types.IsPlaceholderText(c.Description) {
			data.Challenges = append(data.Challenges, c)
		}
	}
	for _, a := range info.Achievements {
		if !types.IsPlaceholderText(a.Description) {
			data.Achievements = append(data.Achievements, a)
		}
	}
	return data
}

// displayValue escapes a field for Markdown, mapping missing values to "Unknown".
func displayValue(s string) string {
	if types.IsPlaceholderText(s) {
		return types.UnknownValue
	}
	return EscapeMarkdown(s)
}
