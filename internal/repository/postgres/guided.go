package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/veldry/chatvault/internal/domain"
)

// GuidedSessionRepository implements domain.GuidedSessionRepository
type GuidedSessionRepository struct {
	db *DB
}

// NewGuidedSessionRepository creates a new guided session repository
func NewGuidedSessionRepository(db *DB) *GuidedSessionRepository {
	return &GuidedSessionRepository{db: db}
}

const guidedColumns = `id, session_id, chat_id, flow_type, state, started_at, completed_at, metadata_enc`

// Create always inserts a new row; prior attempts of the same flow type for
// the chat are preserved as an audit trail, never overwritten.
func (r *GuidedSessionRepository) Create(ctx context.Context, gs *domain.GuidedSession) (*domain.GuidedSession, error) {
	query := `
		INSERT INTO guided_sessions (session_id, chat_id, flow_type, state, started_at, metadata_enc)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + guidedColumns
	out, err := r.scanOne(r.db.Pool.QueryRow(ctx, query,
		gs.SessionID, gs.ChatID, gs.FlowType, domain.GuidedStateActive, gs.StartedAt, gs.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create guided session: %w", err)
	}
	return out, nil
}

func (r *GuidedSessionRepository) GetByID(ctx context.Context, id int64) (*domain.GuidedSession, error) {
	query := `SELECT ` + guidedColumns + ` FROM guided_sessions WHERE id = $1`
	gs, err := r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get guided session: %w", err)
	}
	return gs, err
}

func (r *GuidedSessionRepository) ListBySession(ctx context.Context, sessionID int64) ([]domain.GuidedSession, error) {
	query := `SELECT ` + guidedColumns + ` FROM guided_sessions WHERE session_id = $1 ORDER BY started_at`
	rows, err := r.db.Pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guided sessions: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Transition moves an active guided session to a terminal state. The WHERE
// clause carries the one-directional invariant: a row already terminal
// matches nothing, which is a caller bug, not a race to absorb.
func (r *GuidedSessionRepository) Transition(ctx context.Context, id int64, to domain.GuidedSessionState, at time.Time) error {
	if to != domain.GuidedStateComplete && to != domain.GuidedStateIncomplete {
		return fmt.Errorf("cannot transition to %q: %w", to, domain.ErrInvalidStateTransition)
	}
	query := `
		UPDATE guided_sessions SET state = $2, completed_at = $3
		WHERE id = $1 AND state = $4`
	tag, err := r.db.Pool.Exec(ctx, query, id, to, at, domain.GuidedStateActive)
	if err != nil {
		return fmt.Errorf("failed to transition guided session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("guided session %d is not active: %w", id, domain.ErrInvalidStateTransition)
	}
	return nil
}

// InactivateAllForSession marks every still-active attempt of the session
// incomplete. Used by the close cascade so a closed session never leaves an
// orphaned active flow behind.
func (r *GuidedSessionRepository) InactivateAllForSession(ctx context.Context, sessionID int64, at time.Time) (int64, error) {
	query := `
		UPDATE guided_sessions SET state = $2, completed_at = $3
		WHERE session_id = $1 AND state = $4`
	tag, err := r.db.Pool.Exec(ctx, query, sessionID, domain.GuidedStateIncomplete, at, domain.GuidedStateActive)
	if err != nil {
		return 0, fmt.Errorf("failed to inactivate guided sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *GuidedSessionRepository) ListActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.GuidedSession, error) {
	query := `
		SELECT ` + guidedColumns + `
		FROM guided_sessions
		WHERE state = $1 AND started_at < $2
		ORDER BY started_at`
	rows, err := r.db.Pool.Query(ctx, query, domain.GuidedStateActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list active guided sessions: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// UpdateMetadata replaces the encrypted metadata blob. State and timestamps
// are untouched; this is the flow persisting step-local state.
func (r *GuidedSessionRepository) UpdateMetadata(ctx context.Context, id int64, metadata []byte) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE guided_sessions SET metadata_enc = $2 WHERE id = $1`, id, metadata)
	if err != nil {
		return fmt.Errorf("failed to update guided session metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GuidedSessionRepository) scanOne(row pgx.Row) (*domain.GuidedSession, error) {
	var gs domain.GuidedSession
	err := row.Scan(&gs.ID, &gs.SessionID, &gs.ChatID, &gs.FlowType, &gs.State, &gs.StartedAt, &gs.CompletedAt, &gs.Metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &gs, nil
}

func (r *GuidedSessionRepository) scanAll(rows pgx.Rows) ([]domain.GuidedSession, error) {
	var out []domain.GuidedSession
	for rows.Next() {
		var gs domain.GuidedSession
		if err := rows.Scan(&gs.ID, &gs.SessionID, &gs.ChatID, &gs.FlowType, &gs.State, &gs.StartedAt, &gs.CompletedAt, &gs.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan guided session: %w", err)
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}
