// Package tui provides the terminal viewer for collected test metrics.
package tui

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"test-metrics/src/contracts"
)

const (
	resultWidth = 10
	timeWidth   = 10
	osWidth     = 16
	nameWidth   = 32

	// minListHeight keeps a few rows visible on small terminals.
	minListHeight = 3
)

// MetricsModel is the Bubble Tea model for the metrics viewer.
// The top third lists records, failed first; the rest shows the selected record.
type MetricsModel struct {
	records    []contracts.MetricsRecord
	visible    []int // indexes into records
	failedOnly bool

	cursor       int
	listScroll   int
	detailScroll int

	width  int
	height int

	header Header
	styles *StyleConfig
}

// NewMetricsModel creates a viewer over records. Failed tests sort first;
// order is otherwise preserved.
func NewMetricsModel(title string, records []contracts.MetricsRecord) MetricsModel {
	sorted := make([]contracts.MetricsRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return !sorted[i].TestPassed && sorted[j].TestPassed
	})

	failed := 0
	for _, rec := range sorted {
		if !rec.TestPassed {
			failed++
		}
	}

	m := MetricsModel{
		records: sorted,
		header:  NewHeader(title, len(sorted), failed),
		styles:  DefaultStyles(),
	}
	m.applyFilter()
	return m
}

// Start runs the viewer until the user quits.
func Start(title string, records []contracts.MetricsRecord) error {
	p := tea.NewProgram(NewMetricsModel(title, records), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m MetricsModel) Init() tea.Cmd {
	return nil
}

// Selected returns the record under the cursor.
func (m MetricsModel) Selected() (contracts.MetricsRecord, bool) {
	if len(m.visible) == 0 {
		return contracts.MetricsRecord{}, false
	}
	return m.records[m.visible[m.cursor]], true
}

func (m *MetricsModel) applyFilter() {
	m.visible = nil
	for i, rec := range m.records {
		if m.failedOnly && rec.TestPassed {
			continue
		}
		m.visible = append(m.visible, i)
	}
	m.cursor = 0
	m.listScroll = 0
	m.detailScroll = 0
	m.header.SetFailedOnly(m.failedOnly)
}

func (m MetricsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		listHeight, _ := m.panelHeights()
		last := len(m.visible) - 1

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.detailScroll = 0
			}
		case "down", "j":
			if m.cursor < last {
				m.cursor++
				m.detailScroll = 0
			}
		case "home", "g":
			m.cursor = 0
			m.detailScroll = 0
		case "end", "G":
			m.cursor = max(0, last)
			m.detailScroll = 0

		case "f":
			m.failedOnly = !m.failedOnly
			m.applyFilter()

		case "d":
			m.detailScroll++
		case "u":
			if m.detailScroll > 0 {
				m.detailScroll--
			}
		}

		if m.cursor < m.listScroll {
			m.listScroll = m.cursor
		}
		if m.cursor >= m.listScroll+listHeight {
			m.listScroll = m.cursor - listHeight + 1
		}
	}

	return m, nil
}

// panelHeights splits the rows left after the header, column titles,
// divider and help line.
func (m MetricsModel) panelHeights() (list, detail int) {
	available := m.height - lipgloss.Height(m.header.Render(m.width)) - 3
	list = max(minListHeight, available/3)
	detail = max(1, available-list)
	return list, detail
}

func (m MetricsModel) View() string {
	if m.height == 0 {
		return "Initializing..."
	}
	if len(m.records) == 0 {
		return "No test metrics recorded.\n"
	}

	listHeight, detailHeight := m.panelHeights()
	var b strings.Builder

	b.WriteString(m.header.Render(m.width))
	b.WriteString("\n")
	b.WriteString(m.styles.ColumnHeaderStyle().Render(m.columns("Result", "Time", "OS", "Test", "Error")))
	b.WriteString("\n")

	end := min(m.listScroll+listHeight, len(m.visible))
	for pos := m.listScroll; pos < end; pos++ {
		b.WriteString(m.renderRow(pos))
		b.WriteString("\n")
	}
	for i := end - m.listScroll; i < listHeight; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.styles.DividerStyle().Render(strings.Repeat("─", max(0, m.width))))
	b.WriteString("\n")

	var detail []string
	if rec, ok := m.Selected(); ok {
		detail = m.renderDetail(rec, m.width-2)
	} else {
		detail = []string{"No failed tests."}
	}
	start := min(m.detailScroll, max(0, len(detail)-1))
	stop := min(start+detailHeight, len(detail))
	for _, line := range detail[start:stop] {
		b.WriteString(" " + line + "\n")
	}
	for i := stop - start; i < detailHeight; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.styles.HelpStyle().Render("j/k navigate • g/G top/bottom • f failed only • d/u scroll detail • q quit"))
	return b.String()
}

// columns lays out one list row. The error column takes what is left.
func (m MetricsModel) columns(result, seconds, os, name, errMsg string) string {
	errWidth := max(10, m.width-resultWidth-timeWidth-osWidth-nameWidth-6)
	return "  " +
		Cell(result, resultWidth) +
		Cell(seconds, timeWidth) +
		Cell(os, osWidth) +
		Cell(name, nameWidth) +
		Truncate(errMsg, errWidth)
}

func (m MetricsModel) renderRow(pos int) string {
	rec := m.records[m.visible[pos]]
	errMsg := ""
	if rec.ErrorMsg != nil {
		errMsg = *rec.ErrorMsg
	}

	result := m.styles.OutcomeStyle(rec.TestResult).Render(rec.TestResult)
	row := m.columns(result, formatSeconds(rec.TestTime), rec.OS, rec.TestName, errMsg)

	if pos == m.cursor {
		marker := lipgloss.NewStyle().Foreground(m.styles.AccentBlue).Render("►")
		return marker + m.styles.SelectedStyle().Render(row[1:])
	}
	return row
}

// Visible returns the number of records shown under the current filter.
func (m MetricsModel) Visible() int {
	return len(m.visible)
}
