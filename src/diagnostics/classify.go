// Package diagnostics assigns a best-effort failure category to a test
// result by running an ordered chain of text rules over the test's slice of
// the sanitized job log.
package diagnostics

import (
	"regexp"
	"strings"

	"test-metrics/src/locate"
	"test-metrics/src/results"
)

// Messages produced without running the rule chain.
const (
	MsgNotEnabled    = "diagnostics not enabled for this pipeline"
	MsgUncategorized = "uncategorized"
)

// Diagnostics is the classifier output for one test. LineNumber is 1-based;
// 0 means the test's result line was not found.
type Diagnostics struct {
	ErrorMessage *string `json:"errorMessage"`
	LineNumber   int     `json:"lineNumber"`
	StackTrace   *string `json:"stackTrace"`
}

// AllowList is the set of pipelines diagnostics run for.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from pipeline slugs.
func NewAllowList(pipelines ...string) AllowList {
	allow := make(AllowList, len(pipelines))
	for _, p := range pipelines {
		allow[p] = struct{}{}
	}
	return allow
}

// Contains reports whether pipeline is allow-listed.
func (a AllowList) Contains(pipeline string) bool {
	_, ok := a[pipeline]
	return ok
}

// Log is a sanitized job log split into lines once, so that every test of a
// job can be classified without re-splitting.
type Log struct {
	lines []string
}

// NewLog wraps sanitized log text.
func NewLog(sanitized string) *Log {
	return &Log{lines: locate.Lines(sanitized)}
}

var anyMarker = locate.Regexp(regexp.MustCompile(`test\s+#\d+`))

// markerFor matches the result line of the named test.
func markerFor(name string) locate.Matcher {
	return locate.Regexp(regexp.MustCompile(`test\s+#\d+:?\s+` + regexp.QuoteMeta(strings.ToLower(name)) + `(\s|$)`))
}

// slice returns the test's slice and the index of its result line.
func (l *Log) slice(name string) (*Slice, int) {
	marker := locate.LocateLines(l.lines, markerFor(name), 0)
	if marker == locate.NotFound {
		return &Slice{TestName: strings.ToLower(name)}, marker
	}

	end := locate.LocateLines(l.lines, anyMarker, marker+1)
	if end == locate.NotFound {
		end = len(l.lines)
	}
	return &Slice{TestName: strings.ToLower(name), Lines: l.lines[marker:end]}, marker
}

// Classifier runs a rule chain for allow-listed pipelines.
type Classifier struct {
	Allow AllowList
	Rules []Rule
}

// NewClassifier returns a Classifier using DefaultRules.
func NewClassifier(allow AllowList) *Classifier {
	return &Classifier{Allow: allow, Rules: DefaultRules}
}

// Classify is the one-shot form of Classifier.Classify.
func Classify(test results.TestResult, pipeline string, sanitizedLog string, allow AllowList) Diagnostics {
	return NewClassifier(allow).Classify(test, pipeline, NewLog(sanitizedLog))
}

// Classify computes diagnostics for one test. Passed tests and pipelines
// outside the allow-list short-circuit before any rule runs.
func (c *Classifier) Classify(test results.TestResult, pipeline string, log *Log) Diagnostics {
	slice, marker := log.slice(test.Name)
	diag := Diagnostics{LineNumber: marker + 1}

	if test.Passed() {
		return diag
	}

	if !c.Allow.Contains(pipeline) {
		diag.ErrorMessage = strPtr(MsgNotEnabled)
		return diag
	}

	match, ok := c.firstMatch(slice)
	if !ok {
		diag.ErrorMessage = strPtr(MsgUncategorized)
		return diag
	}

	diag.ErrorMessage = strPtr(match.Message)
	diag.StackTrace = match.StackTrace
	if match.Line != slice.First() {
		diag.LineNumber = locate.LocateLines(log.lines, locate.Literal(match.Line), marker) + 1
	}
	return diag
}

func (c *Classifier) firstMatch(s *Slice) (Match, bool) {
	for _, rule := range c.Rules {
		if m, ok := rule.Apply(s); ok {
			return m, true
		}
	}
	return Match{}, false
}

func strPtr(s string) *string {
	return &s
}
