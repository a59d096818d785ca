// Package locate finds line numbers in sanitized log text.
package locate

import (
	"regexp"
	"strings"
)

// NotFound is returned when no line matches.
const NotFound = -1

// Matcher decides whether a single line matches a search key.
type Matcher interface {
	MatchLine(line string) bool
}

// Literal matches lines containing the string as a substring.
type Literal string

// MatchLine implements Matcher.
func (l Literal) MatchLine(line string) bool {
	return strings.Contains(line, string(l))
}

// Pattern matches lines against a regular expression.
type Pattern struct {
	re *regexp.Regexp
}

// Regexp wraps a compiled regular expression as a Matcher.
func Regexp(re *regexp.Regexp) Pattern {
	return Pattern{re: re}
}

// MatchLine implements Matcher.
func (p Pattern) MatchLine(line string) bool {
	return p.re != nil && p.re.MatchString(line)
}

// Lines splits text on "\n". Empty text has no lines.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Locate returns the 0-based index of the first line at or after startLine
// that matches key, or NotFound. Negative start lines are treated as 0.
func Locate(text string, key Matcher, startLine int) int {
	return LocateLines(Lines(text), key, startLine)
}

// LocateLines is Locate over text that has already been split.
func LocateLines(lines []string, key Matcher, startLine int) int {
	if key == nil {
		return NotFound
	}
	if startLine < 0 {
		startLine = 0
	}
	for i := startLine; i < len(lines); i++ {
		if key.MatchLine(lines[i]) {
			return i
		}
	}
	return NotFound
}
