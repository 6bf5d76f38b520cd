package db

import "context"

// RunStore defines the interface for optimisation run history
type RunStore interface {
	InsertRun(ctx context.Context, run *Run) error
	GetRuns(ctx context.Context, limit int) ([]Run, error)
}

// Database defines the interface for all database operations.
// Both the in-memory MemoryStore and postgres.DB implement this interface.
type Database interface {
	RunStore
	Close()
}
