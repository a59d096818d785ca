package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"test-metrics/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and single-process runs.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*contracts.Run
	records map[string][]contracts.MetricsRecord // runID -> records
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]*contracts.Run),
		records: make(map[string][]contracts.MetricsRecord),
	}
}

func (s *MemoryStore) CreateRun(ctx context.Context, run contracts.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return nil
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Records = 0
	s.runs[run.ID] = &run
	return nil
}

func (s *MemoryStore) SaveRecords(ctx context.Context, runID string, records []contracts.MetricsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; !exists {
		s.runs[runID] = &contracts.Run{ID: runID, StartedAt: time.Now().UTC()}
	}
	s.records[runID] = append(s.records[runID], records...)
	return nil
}

func (s *MemoryStore) FinishRun(ctx context.Context, runID string, failures int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, exists := s.runs[runID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Failures = failures
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*contracts.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return s.snapshot(run), nil
}

func (s *MemoryStore) GetRecords(ctx context.Context, runID string) ([]contracts.MetricsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.runs[runID]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}

	// Return a copy
	records := s.records[runID]
	result := make([]contracts.MetricsRecord, len(records))
	copy(result, records)
	return result, nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit int) ([]contracts.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]contracts.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, *s.snapshot(run))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// snapshot copies run with its current record count. Caller holds mu.
func (s *MemoryStore) snapshot(run *contracts.Run) *contracts.Run {
	out := *run
	out.Records = len(s.records[run.ID])
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
