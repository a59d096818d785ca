// Package report summarizes and writes collected metrics.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"test-metrics/src/contracts"
)

// Count is a label with the number of records it covers.
type Count struct {
	Label  string `json:"label"`
	Total  int    `json:"total"`
	Failed int    `json:"failed"`
}

// Summary aggregates a set of records.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Exception int `json:"exception"`
	// ByOS is sorted by label.
	ByOS []Count `json:"by_os"`
	// ByError counts failing records per error message, most frequent first.
	ByError []Count `json:"by_error"`
	// JobFailures is the number of jobs whose assembly failed.
	JobFailures int `json:"job_failures"`
}

// Summarize counts records by outcome, OS and error message.
func Summarize(records []contracts.MetricsRecord) Summary {
	var s Summary
	byOS := map[string]*Count{}
	byError := map[string]*Count{}

	for _, rec := range records {
		s.Total++
		switch rec.TestResult {
		case "Passed":
			s.Passed++
		case "Failed":
			s.Failed++
		default:
			s.Exception++
		}

		osCount := bump(byOS, rec.OS)
		if rec.TestPassed {
			continue
		}
		osCount.Failed++

		msg := "(none)"
		if rec.ErrorMsg != nil {
			msg = *rec.ErrorMsg
		}
		e := bump(byError, msg)
		e.Failed++
	}

	s.ByOS = sorted(byOS, func(a, b Count) bool { return a.Label < b.Label })
	s.ByError = sorted(byError, byFrequency)
	return s
}

func byFrequency(a, b Count) bool {
	if a.Total != b.Total {
		return a.Total > b.Total
	}
	return a.Label < b.Label
}

func bump(m map[string]*Count, label string) *Count {
	c, ok := m[label]
	if !ok {
		c = &Count{Label: label}
		m[label] = c
	}
	c.Total++
	return c
}

func sorted(m map[string]*Count, less func(a, b Count) bool) []Count {
	out := make([]Count, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Failures returns the records of tests that did not pass, in order.
func Failures(records []contracts.MetricsRecord) []contracts.MetricsRecord {
	var out []contracts.MetricsRecord
	for _, rec := range records {
		if !rec.TestPassed {
			out = append(out, rec)
		}
	}
	return out
}

// GroupFailures counts failing records by key(errorMsg), most frequent
// first. Records without a message are grouped under "(none)".
func GroupFailures(records []contracts.MetricsRecord, key func(string) string) []Count {
	groups := map[string]*Count{}
	for _, rec := range records {
		if rec.TestPassed {
			continue
		}
		label := "(none)"
		if rec.ErrorMsg != nil {
			label = key(*rec.ErrorMsg)
		}
		c := bump(groups, label)
		c.Failed++
	}
	return sorted(groups, byFrequency)
}

// WriteJSON writes {"metrics": [...]} to path, creating parent directories.
func WriteJSON(path string, records []contracts.MetricsRecord) error {
	if records == nil {
		records = []contracts.MetricsRecord{}
	}
	data, err := json.MarshalIndent(contracts.Report{Metrics: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a file written by WriteJSON.
func ReadJSON(path string) ([]contracts.MetricsRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rep contracts.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rep.Metrics, nil
}
