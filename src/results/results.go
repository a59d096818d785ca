// Package results turns CI test output into a uniform list of TestResult
// records. Two producers exist: ParseStructured reads a decoded CTest report,
// ParseLog scans sanitized log text for CTest "test #N" result lines.
package results

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"test-metrics/src/ctest"
)

// Outcome is the classified result of a single test case.
type Outcome string

const (
	Passed    Outcome = "Passed"
	Failed    Outcome = "Failed"
	Exception Outcome = "Exception"
)

var (
	// ErrUnusableReport means the structured report was nil or had no tests.
	ErrUnusableReport = errors.New("structured test report is empty or malformed")

	// ErrNoExecutionTime means a test node had no "execution time" measurement.
	ErrNoExecutionTime = errors.New("test has no execution time measurement")
)

// TestResult is one test case as reported by a job. Duration keeps the
// source text; Seconds converts it.
type TestResult struct {
	Name     string  `json:"name"`
	Outcome  Outcome `json:"outcome"`
	Duration string  `json:"duration"`
}

// Seconds parses Duration. Malformed durations yield NaN, not an error.
func (r TestResult) Seconds() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.Duration), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Passed reports whether the outcome is Passed.
func (r TestResult) Passed() bool {
	return r.Outcome == Passed
}

// classifyStatus maps free-form status text onto an Outcome. "failed" is
// checked before "passed".
func classifyStatus(status string) Outcome {
	switch {
	case strings.Contains(status, "failed"):
		return Failed
	case strings.Contains(status, "passed"):
		return Passed
	default:
		return Exception
	}
}

var executionTimePattern = regexp.MustCompile(`execution\s+time`)

// ParseStructured converts a decoded CTest report into results, one per
// <Test> node in document order.
func ParseStructured(report *ctest.Report) ([]TestResult, error) {
	if report == nil || len(report.Testing.Tests) == 0 {
		return nil, ErrUnusableReport
	}

	results := make([]TestResult, 0, len(report.Testing.Tests))
	for _, test := range report.Testing.Tests {
		duration, ok := executionTime(test)
		if !ok {
			return nil, &NodeError{Test: test.Name, Err: ErrNoExecutionTime}
		}

		results = append(results, TestResult{
			Name:     test.Name,
			Outcome:  classifyStatus(strings.ToLower(test.Status())),
			Duration: duration,
		})
	}

	return results, nil
}

// executionTime returns the value of the first measurement named like
// "Execution Time" (case-insensitive).
func executionTime(test ctest.Test) (string, bool) {
	for _, m := range test.Results.NamedMeasurements {
		if executionTimePattern.MatchString(strings.ToLower(m.Name)) {
			return strings.TrimSpace(m.Value), true
		}
	}
	return "", false
}

// NodeError identifies the test node a structured parse failed on.
type NodeError struct {
	Test string
	Err  error
}

func (e *NodeError) Error() string {
	return "test " + strconv.Quote(e.Test) + ": " + e.Err.Error()
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

var (
	resultLinePattern = regexp.MustCompile(`test\s+#\d+`)

	// marker through the optional colon CTest prints after the number
	markerPrefixPattern = regexp.MustCompile(`^.*?test\s+#\d+:?`)

	unitSuffixPattern = regexp.MustCompile(`\s+sec\s*$`)
)

// ParseLog extracts results from sanitized log lines of the form
//
//	1/91 test #1: unit_test_wabt ........ passed 53.44 sec
//
// The first token after the marker is the name and the last token is the
// duration; the outcome comes from whatever lies between them. A log with no
// result lines yields an empty slice.
func ParseLog(sanitizedLog string) []TestResult {
	results := []TestResult{}

	for _, line := range strings.Split(sanitizedLog, "\n") {
		if !resultLinePattern.MatchString(line) {
			continue
		}

		result, ok := parseResultLine(line)
		if !ok {
			continue
		}
		results = append(results, result)
	}

	return results
}

// parseResultLine tokenizes a single result line.
func parseResultLine(line string) (TestResult, bool) {
	loc := markerPrefixPattern.FindStringIndex(line)
	if loc == nil {
		return TestResult{}, false
	}

	rest := unitSuffixPattern.ReplaceAllString(line[loc[1]:], "")
	tokens := strings.Fields(rest)
	if len(tokens) == 0 {
		return TestResult{}, false
	}

	var middle string
	if len(tokens) > 2 {
		middle = strings.Join(tokens[1:len(tokens)-1], "")
	}

	return TestResult{
		Name:     tokens[0],
		Outcome:  classifyStatus(middle),
		Duration: tokens[len(tokens)-1],
	}, true
}
