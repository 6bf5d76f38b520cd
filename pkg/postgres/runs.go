package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/shift-optimizer/pkg/db"
)

// InsertRun records an optimisation run
func (d *DB) InsertRun(ctx context.Context, run *db.Run) error {
	result := run.Result
	if len(result) == 0 {
		result = []byte("[]")
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO optimization_run (
			id, created_at, signature, backend, worker_count, post_count, hour_count,
			is_optim, status, objective, duration_ms, result
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, run.ID, run.CreatedAt.UTC(), run.Signature, run.Backend, run.WorkerCount, run.PostCount, run.HourCount,
		run.IsOptim, run.Status, run.Objective, run.DurationMS, string(result))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRuns returns the newest runs first. A limit of zero or less returns every run.
func (d *DB) GetRuns(ctx context.Context, limit int) ([]db.Run, error) {
	query := `
		SELECT id, created_at, signature, backend, worker_count, post_count, hour_count,
			is_optim, status, objective, duration_ms, result
		FROM optimization_run
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []db.Run
	for rows.Next() {
		var r db.Run
		var result []byte
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Signature, &r.Backend, &r.WorkerCount, &r.PostCount,
			&r.HourCount, &r.IsOptim, &r.Status, &r.Objective, &r.DurationMS, &result); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Result = result
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}
