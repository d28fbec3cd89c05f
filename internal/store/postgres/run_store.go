package postgres

import (
	"context"
	"fmt"

	"github.com/opennotify/autonotifier/internal/announce"
)

// RunStore persists run history rows.
type RunStore struct {
	pool Pool
}

// NewRunStore builds a RunStore over an existing pool.
func NewRunStore(pool Pool) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RunStore{pool: pool}, nil
}

// RecordRun inserts one history row.
func (s *RunStore) RecordRun(ctx context.Context, run announce.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO runs (id, status, message, new_count, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Status), run.Message, run.NewCount, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return &announce.PersistenceError{Op: "record run", Err: err}
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]announce.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, status, message, new_count, started_at, finished_at
FROM runs
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, &announce.PersistenceError{Op: "list runs", Err: err}
	}
	defer rows.Close()

	var runs []announce.RunRecord
	for rows.Next() {
		var run announce.RunRecord
		var status string
		if err := rows.Scan(&run.ID, &status, &run.Message, &run.NewCount, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, &announce.PersistenceError{Op: "scan run", Err: err}
		}
		run.Status = announce.RunStatus(status)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, &announce.PersistenceError{Op: "iterate runs", Err: err}
	}
	return runs, nil
}
