package diagnostics

import (
	"regexp"
	"strconv"
	"strings"
)

// Slice is the part of a sanitized log that belongs to one test: the test's
// result line followed by every line up to the next "test #N" marker.
type Slice struct {
	TestName string
	Lines    []string
}

// First returns the result line, or "" for an empty slice.
func (s *Slice) First() string {
	if len(s.Lines) == 0 {
		return ""
	}
	return s.Lines[0]
}

// nthNonEmpty returns the n-th (1-based) non-empty line of the slice.
func (s *Slice) nthNonEmpty(n int) (string, bool) {
	seen := 0
	for _, line := range s.Lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		seen++
		if seen == n {
			return line, true
		}
	}
	return "", false
}

// find returns the first line for which match is true.
func (s *Slice) find(match func(string) bool) (string, bool) {
	for _, line := range s.Lines {
		if match(line) {
			return line, true
		}
	}
	return "", false
}

// Match is what a rule extracts from a slice. Line is the log line the
// message came from.
type Match struct {
	Message    string
	Line       string
	StackTrace *string
}

// Rule is one entry of the classification chain.
type Rule struct {
	Name  string
	Apply func(s *Slice) (Match, bool)
}

// Tags prefixed to messages extracted by the framework-specific rules.
const (
	FCTag    = "fc exception: "
	CTestTag = "ctest error: "
	BoostTag = "boost exception: "
)

// DefaultRules is the classification chain, evaluated in order; the first
// rule that matches decides the message.
var DefaultRules = []Rule{
	{Name: "not-run", Apply: matchNotRun},
	{Name: "timeout", Apply: matchTimeout},
	{Name: "exception-status", Apply: matchExceptionStatus},
	{Name: "fc-exception", Apply: matchFCException},
	{Name: "ctest", Apply: matchCTest},
	{Name: "boost-exception", Apply: matchBoostException},
	{Name: "unit-test-exception", Apply: matchUnitTestException},
}

var (
	notRunPattern   = regexp.MustCompile(`not\s*run\b.*\s0\.0+\s*sec\s*$`)
	timeoutPattern  = regexp.MustCompile(`time\s*out`)
	secondsPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*sec\s*$`)
	fcPattern       = regexp.MustCompile(`fc::.*exception`)
	boostPattern    = regexp.MustCompile(`boost.*exception`)
	threadPattern   = regexp.MustCompile(`thread-\d+`)
	colorSuffix     = regexp.MustCompile(`\[\d+m$`)
	unitNamePattern = regexp.MustCompile(`(unit|plugin)[-_. ]*tests?`)
	parenPrefix     = regexp.MustCompile(`^.*?\([^)]*\)`)
)

func matchNotRun(s *Slice) (Match, bool) {
	first := s.First()
	if !notRunPattern.MatchString(first) {
		return Match{}, false
	}
	return Match{Message: "test not run", Line: first}, true
}

func matchTimeout(s *Slice) (Match, bool) {
	first := s.First()
	if !timeoutPattern.MatchString(first) {
		return Match{}, false
	}
	seconds, ok := trailingSeconds(first)
	if !ok || seconds <= 0 {
		return Match{}, false
	}
	return Match{Message: "test timeout", Line: first}, true
}

// trailingSeconds parses the "N.NN sec" suffix of a result line.
func trailingSeconds(line string) (float64, bool) {
	m := secondsPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func matchExceptionStatus(s *Slice) (Match, bool) {
	first := s.First()
	idx := strings.LastIndex(first, "exception")
	if idx < 0 {
		return Match{}, false
	}

	msg := strings.TrimSpace(first[idx+len("exception"):])
	msg = strings.TrimSuffix(msg, "sec")
	msg = strings.Trim(msg, "0123456789.: ")
	return Match{Message: msg, Line: first}, true
}

func matchFCException(s *Slice) (Match, bool) {
	line, ok := s.nthNonEmpty(2)
	if !ok || !fcPattern.MatchString(line) {
		return Match{}, false
	}

	rest := line[strings.Index(line, "::")+len("::"):]
	token := ""
	if fields := strings.Fields(rest); len(fields) > 0 {
		token = strings.TrimRight(fields[0], ":,;")
	}
	return Match{Message: FCTag + token, Line: line}, true
}

func matchCTest(s *Slice) (Match, bool) {
	line, ok := s.find(func(l string) bool { return strings.Contains(l, "ctest:") })
	if !ok {
		return Match{}, false
	}

	rest := line[strings.Index(line, "ctest:")+len("ctest:"):]
	return Match{Message: CTestTag + strings.TrimSpace(rest), Line: line}, true
}

func matchBoostException(s *Slice) (Match, bool) {
	line, ok := s.find(boostPattern.MatchString)
	if !ok {
		return Match{}, false
	}

	msg := ""
	if idx := strings.Index(line, ":"); idx >= 0 {
		msg = strings.TrimSpace(line[idx+1:])
	}
	return Match{Message: BoostTag + msg, Line: line, StackTrace: s.stackTrace()}, true
}

func matchUnitTestException(s *Slice) (Match, bool) {
	if !unitNamePattern.MatchString(s.TestName) {
		return Match{}, false
	}
	line, ok := s.find(func(l string) bool { return strings.Contains(l, "exception: ") })
	if !ok {
		return Match{}, false
	}

	rest := strings.TrimLeft(parenPrefix.ReplaceAllString(line, ""), ": ")
	if _, after, found := strings.Cut(rest, ": "); found {
		rest = after
	}
	return Match{Message: strings.TrimSpace(rest), Line: line, StackTrace: s.stackTrace()}, true
}

// stackTrace extracts the fragment after "thread-" on the first thread line,
// minus a trailing color reset left behind by the sanitizer.
func (s *Slice) stackTrace() *string {
	line, ok := s.find(threadPattern.MatchString)
	if !ok {
		return nil
	}

	loc := threadPattern.FindStringIndex(line)
	frag := strings.TrimSpace(line[loc[0]+len("thread-"):])
	frag = strings.TrimSpace(colorSuffix.ReplaceAllString(frag, ""))
	return &frag
}
