// Package contracts defines the records exchanged between the collector, the
// broker, the store and the viewers.
package contracts

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// TopicMetrics carries one RecordEnvelope per test result.
// Key: {job_id}
const TopicMetrics = "test-metrics.records"

// Seconds is a test duration. NaN means the duration could not be parsed and
// is written as JSON null.
type Seconds float64

// MarshalJSON writes NaN and infinities as null.
func (s Seconds) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON reads null back as NaN.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Seconds(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Seconds(f)
	return nil
}

// Valid reports whether the duration was parsed.
func (s Seconds) Valid() bool {
	return !math.IsNaN(float64(s))
}

// MetricsRecord is one test execution together with its job context and
// failure diagnostics.
type MetricsRecord struct {
	// Job context, from the job's environment.
	AgentName   string `json:"agentName"`
	AgentRole   string `json:"agentRole"`
	Branch      string `json:"branch"`
	BuildNumber string `json:"buildNumber"`
	Commit      string `json:"commit"`
	Job         string `json:"job"`
	OS          string `json:"os"`
	Pipeline    string `json:"pipeline"`
	Repo        string `json:"repo"`

	// Test outcome.
	TestName   string  `json:"testName"`
	TestResult string  `json:"testResult"`
	TestPassed bool    `json:"testPassed"`
	TestTime   Seconds `json:"testTime"`

	// Diagnostics; ErrorMsg and StackTrace are null for passed tests.
	ErrorMsg   *string `json:"errorMsg"`
	LineNumber int     `json:"lineNumber"`
	StackTrace *string `json:"stackTrace"`

	WebURL string `json:"webUrl"`
	JobID  string `json:"jobId"`
}

// Report is the top-level shape of test-metrics.json.
type Report struct {
	Metrics []MetricsRecord `json:"metrics"`
}

// RecordEnvelope is the message value published on TopicMetrics.
type RecordEnvelope struct {
	RunID  string        `json:"run_id"`
	Record MetricsRecord `json:"record"`
}

// Run describes one collection of a build.
type Run struct {
	ID          string     `json:"id"`
	Pipeline    string     `json:"pipeline"`
	BuildNumber string     `json:"build_number"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Records     int        `json:"records"`
	Failures    int        `json:"failures"`
}
