package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the viewer palette.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	AccentBlue    lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	BorderColor   lipgloss.Color
	SelectedColor lipgloss.Color

	Passed    lipgloss.Color
	Failed    lipgloss.Color
	Exception lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		AccentBlue:    lipgloss.Color("#4285F4"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		BorderColor:   lipgloss.Color("#5F6368"),
		SelectedColor: lipgloss.Color("#303134"),
		Passed:        lipgloss.Color("#34A853"),
		Failed:        lipgloss.Color("#EA4335"),
		Exception:     lipgloss.Color("#FBBC04"),
	}
}

func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Faint(true)
}

// ColumnHeaderStyle styles the list's column titles.
func (s *StyleConfig) ColumnHeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Bold(true)
}

func (s *StyleConfig) SelectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(s.SelectedColor).
		Foreground(s.TextPrimary)
}

func (s *StyleConfig) DividerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.BorderColor)
}

// OutcomeStyle colors a test result.
func (s *StyleConfig) OutcomeStyle(result string) lipgloss.Style {
	color := s.Exception
	switch result {
	case "Passed":
		color = s.Passed
	case "Failed":
		color = s.Failed
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// LabelStyle styles field names in the detail panel.
func (s *StyleConfig) LabelStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.TextSecondary).Bold(true)
}
