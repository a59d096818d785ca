// Package mcp exposes build metrics collection to LLM clients over the Model
// Context Protocol.
package mcp

import (
	"test-metrics/src/contracts"
	"test-metrics/src/report"
)

// CollectResponse is returned by collect_build_metrics.
type CollectResponse struct {
	RunID       string         `json:"run_id"`
	Pipeline    string         `json:"pipeline"`
	BuildNumber string         `json:"build_number"`
	BuildURL    string         `json:"build_url,omitempty"`
	BuildState  string         `json:"build_state,omitempty"`
	Summary     report.Summary `json:"summary"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// FailuresResponse is returned by get_test_failures.
type FailuresResponse struct {
	RunID string `json:"run_id"`
	// Total is the number of failed records before the limit applied.
	Total    int                       `json:"total"`
	Failures []contracts.MetricsRecord `json:"failures"`
}

// SummaryResponse is returned by get_run_summary.
type SummaryResponse struct {
	Run     *contracts.Run `json:"run,omitempty"`
	Summary report.Summary `json:"summary"`
	// Signatures groups failures whose messages differ only in numbers,
	// addresses or paths.
	Signatures []report.Count `json:"signatures"`
}
