// Package store defines the interface for persisting metrics runs.
package store

import (
	"context"
	"errors"

	"test-metrics/src/contracts"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store persists collection runs and their records.
type Store interface {
	// CreateRun records the start of a run. Creating an existing run is a no-op.
	CreateRun(ctx context.Context, run contracts.Run) error

	// SaveRecords appends records to a run, creating the run if needed.
	SaveRecords(ctx context.Context, runID string, records []contracts.MetricsRecord) error

	// FinishRun marks a run finished with its failed-job count.
	FinishRun(ctx context.Context, runID string, failures int) error

	// GetRun returns a run with its record count.
	GetRun(ctx context.Context, runID string) (*contracts.Run, error)

	// GetRecords returns a run's records in insertion order.
	GetRecords(ctx context.Context, runID string) ([]contracts.MetricsRecord, error)

	// ListRuns returns the most recently started runs first.
	ListRuns(ctx context.Context, limit int) ([]contracts.Run, error)

	// Close closes the store connection
	Close() error
}
