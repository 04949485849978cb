package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veldry/chatvault/internal/domain"
)

const watermarkField = "last_swept_at"

// StateStore gives jobs a typed view over their durable key/value state. The
// underlying rows survive restarts, so a job resumes from its last watermark
// instead of rescanning from zero.
type StateStore struct {
	repo domain.JobStateRepository
}

// NewStateStore creates a new job state store
func NewStateStore(repo domain.JobStateRepository) *StateStore {
	return &StateStore{repo: repo}
}

// LastSweptAt returns the job's watermark. The second return is false when
// the job has never saved one.
func (s *StateStore) LastSweptAt(ctx context.Context, jobName string) (time.Time, bool, error) {
	state, err := s.repo.Load(ctx, jobName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	raw, ok := state[watermarkField].(string)
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse watermark for job %q: %w", jobName, err)
	}
	return t, true, nil
}

// SetLastSweptAt advances the job's watermark.
func (s *StateStore) SetLastSweptAt(ctx context.Context, jobName string, t time.Time) error {
	return s.repo.Save(ctx, jobName, map[string]any{
		watermarkField: t.UTC().Format(time.RFC3339Nano),
	})
}

// Clear drops the job's saved state.
func (s *StateStore) Clear(ctx context.Context, jobName string) error {
	return s.repo.Clear(ctx, jobName)
}
