package domain

import "context"

// JobStateRepository persists per-job key/value state across process
// restarts. A job that crashed mid-run reads its last-saved watermark on the
// next run and resumes from there.
type JobStateRepository interface {
	Save(ctx context.Context, jobName string, state map[string]any) error
	// Load returns the saved state verbatim, or ErrNotFound when the job has
	// no saved state.
	Load(ctx context.Context, jobName string) (map[string]any, error)
	Clear(ctx context.Context, jobName string) error
}
