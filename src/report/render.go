package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	labelWidth  = 48
	maxErrorRow = 10
)

// Render formats a summary for the terminal.
func Render(s Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Test metrics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d  %s %s  %s %s  %s %d\n",
		labelStyle.Render("tests"), s.Total,
		labelStyle.Render("passed"), passStyle.Render(fmt.Sprint(s.Passed)),
		labelStyle.Render("failed"), failStyle.Render(fmt.Sprint(s.Failed)),
		labelStyle.Render("exceptions"), s.Exception,
	)
	if s.JobFailures > 0 {
		b.WriteString(failStyle.Render(fmt.Sprintf("%d job(s) could not be collected", s.JobFailures)))
		b.WriteString("\n")
	}

	if len(s.ByOS) > 0 {
		b.WriteString("\n" + titleStyle.Render("By OS") + "\n")
		for _, c := range s.ByOS {
			b.WriteString(row(c))
		}
	}

	if len(s.ByError) > 0 {
		b.WriteString("\n" + titleStyle.Render("Failures by message") + "\n")
		for i, c := range s.ByError {
			if i == maxErrorRow {
				fmt.Fprintf(&b, "%s\n", labelStyle.Render(fmt.Sprintf("... %d more", len(s.ByError)-maxErrorRow)))
				break
			}
			b.WriteString(row(c))
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func row(c Count) string {
	label := runewidth.FillRight(runewidth.Truncate(c.Label, labelWidth, "..."), labelWidth)
	failed := fmt.Sprint(c.Failed)
	if c.Failed > 0 {
		failed = failStyle.Render(failed)
	}
	return fmt.Sprintf("  %s %5d  %s\n", label, c.Total, failed)
}
