package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gofhir/txaudit/pkg/result"
)

var (
	accent  = lipgloss.Color("#2563EB")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	info    = lipgloss.Color("#8B949E")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(dim)

	labelStyles = map[result.Label]lipgloss.Style{
		result.Pass:     lipgloss.NewStyle().Foreground(success).Bold(true),
		result.Fail:     lipgloss.NewStyle().Foreground(danger).Bold(true),
		result.Error:    lipgloss.NewStyle().Foreground(warning).Bold(true),
		result.Info:     lipgloss.NewStyle().Foreground(info),
		result.Excluded: lipgloss.NewStyle().Foreground(dim),
		result.Unknown:  lipgloss.NewStyle().Foreground(dim),
	}
)

// MaxListedFailures caps the FAIL rows printed by Summary.
const MaxListedFailures = 10

// Summary renders a terminal overview: run details, a count per label and
// the first failing codes.
func Summary(meta Meta, rows []result.ValidationResult) string {
	var b strings.Builder

	head := titleStyle.Render("Terminology audit") + "\n" +
		dimStyle.Render(fmt.Sprintf("%s  ·  %d rows  ·  %s", meta.Endpoint, len(rows), meta.Duration().Round(time.Millisecond)))
	b.WriteString(boxStyle.Render(head))
	b.WriteString("\n\n")

	tally := result.Tally(rows)
	for _, l := range result.Labels {
		n := tally[l]
		if n == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-10s %d\n", labelStyles[l].Render(l.String()), n))
	}

	var fails []result.ValidationResult
	for _, r := range rows {
		if r.Result == result.Fail {
			fails = append(fails, r)
		}
	}
	if len(fails) == 0 {
		return b.String()
	}

	b.WriteString("\n  " + titleStyle.Render("Failures") + "\n")
	for i, r := range fails {
		if i == MaxListedFailures {
			b.WriteString(dimStyle.Render(fmt.Sprintf("    … and %d more", len(fails)-MaxListedFailures)) + "\n")
			break
		}
		b.WriteString(fmt.Sprintf("    %s %s %s|%s  %s\n",
			labelStyles[result.Fail].Render("●"),
			r.File,
			deref(r.System), deref(r.Code),
			dimStyle.Render(r.Path),
		))
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
