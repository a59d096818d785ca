package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of s. Escape sequences take no cells.
func VisualWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate cuts s to width cells, ending in "..." when anything was cut.
// Styled text keeps its escape sequences.
func Truncate(s string, width int) string {
	s = strings.TrimSpace(s)
	if width <= 0 {
		return ""
	}
	if VisualWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}

// Cell truncates s and pads it to exactly width cells.
func Cell(s string, width int) string {
	s = Truncate(s, width)
	if w := VisualWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Wrap breaks plain text into lines of at most width cells, on spaces where
// possible. Words wider than a line are split.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range strings.Fields(text) {
		for runewidth.StringWidth(word) > width {
			if lineWidth > 0 {
				flush()
			}
			chunk := runewidth.Truncate(word, width, "")
			if chunk == "" {
				// A single rune wider than the line.
				chunk = string([]rune(word)[:1])
			}
			lines = append(lines, chunk)
			word = word[len(chunk):]
		}
		if word == "" {
			continue
		}

		w := runewidth.StringWidth(word)
		switch {
		case lineWidth == 0:
		case lineWidth+1+w <= width:
			line.WriteByte(' ')
			lineWidth++
		default:
			flush()
		}
		line.WriteString(word)
		lineWidth += w
	}
	if lineWidth > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}
