package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/trainer"
)

//nolint:gochecknoglobals // styles are immutable.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	customStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	planStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func renderReview(r trainer.Review, tr func(string) string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(tr("step.review")))
	b.WriteString("\n")
	for _, section := range r.Sections {
		b.WriteString(sectionStyle.Render(section.Title))
		b.WriteString("\n")
		for _, field := range section.Fields {
			fmt.Fprintf(&b, "  %s: %s\n", labelStyle.Render(field.Label), fieldValue(field, tr))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// fieldValue shows tag fields as a comma separated list with the custom tags set apart.
func fieldValue(f trainer.ReviewField, tr func(string) string) string {
	if f.Tags == nil && f.Value != "" {
		return f.Value
	}
	if len(f.Tags) == 0 {
		return tr("review.none")
	}
	labels := make([]string, 0, len(f.Tags))
	for _, tag := range f.Tags {
		if tag.Custom {
			labels = append(labels, customStyle.Render(tag.Label))
			continue
		}
		labels = append(labels, tagStyle.Render(tag.Label))
	}
	return strings.Join(labels, ", ")
}

func renderPlan(d plan.Draft, tr func(string) string) string {
	sections := []struct{ key, text string }{
		{"plan.summary", d.Summary},
		{"plan.workout", d.Workout},
		{"plan.diet", d.Diet},
	}
	parts := make([]string, 0, len(sections)+1)
	parts = append(parts, titleStyle.Render(tr("plan.heading")))
	for _, s := range sections {
		parts = append(parts, sectionStyle.Render(tr(s.key))+"\n"+planStyle.Render(strings.TrimSpace(s.text)))
	}
	return strings.Join(parts, "\n")
}

func renderFieldErrors(err error, tr func(string) string) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render(tr("cli.fixErrors")))
	fields := trainer.FieldErrors(err)
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(&b, "\n  %s: %s", labelStyle.Render(tr("field."+field)), errorStyle.Render(fields[field]))
	}
	return b.String()
}
