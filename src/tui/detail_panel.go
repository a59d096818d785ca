package tui

import (
	"fmt"
	"strconv"

	"test-metrics/src/contracts"
)

// renderDetail returns the detail lines for one record, wrapped to width.
func (m MetricsModel) renderDetail(rec contracts.MetricsRecord, width int) []string {
	label := m.styles.LabelStyle()
	var lines []string

	field := func(name, value string) {
		if value == "" {
			return
		}
		prefix := label.Render(fmt.Sprintf("%-10s", name))
		lines = append(lines, Truncate(prefix+" "+value, width))
	}
	block := func(name string, value *string) {
		if value == nil {
			return
		}
		lines = append(lines, "", label.Render(name))
		lines = append(lines, Wrap(*value, width)...)
	}

	header := m.styles.TitleStyle().Render(rec.TestName) + " " + m.styles.OutcomeStyle(rec.TestResult).Render(rec.TestResult)
	lines = append(lines, Truncate(header, width), "")

	field("Time", formatSeconds(rec.TestTime))
	field("Job", rec.Job)
	field("OS", rec.OS)
	field("Agent", agentText(rec))
	field("Pipeline", fmt.Sprintf("%s #%s", rec.Pipeline, rec.BuildNumber))
	field("Branch", rec.Branch)
	field("Commit", rec.Commit)
	field("Repo", rec.Repo)
	if rec.LineNumber > 0 {
		field("Log line", strconv.Itoa(rec.LineNumber))
	}
	field("URL", rec.WebURL)

	block("Error", rec.ErrorMsg)
	block("Stack trace", rec.StackTrace)

	return lines
}

func agentText(rec contracts.MetricsRecord) string {
	if rec.AgentRole == "" {
		return rec.AgentName
	}
	return fmt.Sprintf("%s (%s)", rec.AgentName, rec.AgentRole)
}

func formatSeconds(s contracts.Seconds) string {
	if !s.Valid() {
		return "n/a"
	}
	return fmt.Sprintf("%.2fs", float64(s))
}
