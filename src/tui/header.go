package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Header is the top status bar: title, counts and the active filter.
type Header struct {
	title      string
	total      int
	failed     int
	failedOnly bool
	styles     *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(title string, total, failed int) Header {
	return Header{title: title, total: total, failed: failed, styles: DefaultStyles()}
}

// SetFailedOnly updates the filter shown in the header.
func (h *Header) SetFailedOnly(on bool) {
	h.failedOnly = on
}

// Render renders the header
func (h Header) Render(width int) string {
	title := h.styles.TitleStyle().Render(h.title)

	counts := lipgloss.NewStyle().
		Foreground(h.styles.TextPrimary).
		Padding(0, 2).
		Render(fmt.Sprintf("%d tests", h.total))

	failed := lipgloss.NewStyle().
		Foreground(h.styles.Failed).
		Bold(h.failed > 0).
		Padding(0, 2).
		Render(fmt.Sprintf("%d failed", h.failed))

	filter := "ALL"
	if h.failedOnly {
		filter = "FAILED"
	}
	filterText := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Padding(0, 2).
		Render(fmt.Sprintf("Filter: %s", filter))

	row := lipgloss.JoinHorizontal(lipgloss.Left, title, counts, failed, filterText)
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width).
		Render(Truncate(row, width))
}
