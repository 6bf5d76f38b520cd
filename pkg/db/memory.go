package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps runs in process. It backs the CLI and server when no
// database URL is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	runs []Run
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// InsertRun stores a copy of run
func (s *MemoryStore) InsertRun(_ context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("failed to insert run: missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.runs {
		if existing.ID == run.ID {
			return fmt.Errorf("failed to insert run: duplicate id %s", run.ID)
		}
	}

	stored := *run
	stored.Result = append([]byte(nil), run.Result...)
	s.runs = append(s.runs, stored)
	return nil
}

// GetRuns returns the newest runs first. A limit of zero or less returns every run.
func (s *MemoryStore) GetRuns(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, len(s.runs))
	copy(runs, s.runs)
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close is a no-op
func (s *MemoryStore) Close() {}
