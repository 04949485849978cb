package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/veldry/chatvault/internal/domain"
)

// JobStateRepository implements domain.JobStateRepository on a jsonb table.
// State survives process restarts so a crashed job can resume from its own
// last-saved watermark.
type JobStateRepository struct {
	db *DB
}

// NewJobStateRepository creates a new job state repository
func NewJobStateRepository(db *DB) *JobStateRepository {
	return &JobStateRepository{db: db}
}

func (r *JobStateRepository) Save(ctx context.Context, jobName string, state map[string]any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal job state: %w", err)
	}
	query := `
		INSERT INTO job_state (name, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`
	if _, err := r.db.Pool.Exec(ctx, query, jobName, data); err != nil {
		return fmt.Errorf("failed to save job state: %w", err)
	}
	return nil
}

func (r *JobStateRepository) Load(ctx context.Context, jobName string) (map[string]any, error) {
	var data []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT state FROM job_state WHERE name = $1`, jobName).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job state: %w", err)
	}

	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job state: %w", err)
	}
	return state, nil
}

func (r *JobStateRepository) Clear(ctx context.Context, jobName string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM job_state WHERE name = $1`, jobName); err != nil {
		return fmt.Errorf("failed to clear job state: %w", err)
	}
	return nil
}
