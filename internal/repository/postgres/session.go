package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/veldry/chatvault/internal/domain"
)

// SessionRepository implements domain.SessionRepository
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, chat_id, dedup_key, started_at, ended_at,
	last_user_message_at, last_user_activity_at,
	last_bot_message_at, last_bot_activity_at, message_count`

// GetOrCreateActive returns the chat's active session, inserting one when
// none exists. Race-safety comes from the store: the partial unique index on
// (chat_id) WHERE ended_at IS NULL makes the insert atomic, and the conflict
// path re-reads the winning row instead of surfacing the race.
func (r *SessionRepository) GetOrCreateActive(ctx context.Context, chatID int64, startedAt time.Time) (*domain.Session, error) {
	insert := `
		INSERT INTO sessions (chat_id, dedup_key, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING ` + sessionColumns

	for attempt := 0; attempt < 3; attempt++ {
		s, err := r.scanOne(r.db.Pool.QueryRow(ctx, insert, chatID, domain.SessionDedupKey(chatID, startedAt), startedAt))
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}

		// Another caller won the insert; converge on their row.
		s, err = r.GetActiveByChat(ctx, chatID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// The winning row was closed between the insert and the read.
	}
	return nil, fmt.Errorf("failed to converge on active session for chat %d", chatID)
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	s, err := r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, err
}

func (r *SessionRepository) GetActiveByChat(ctx context.Context, chatID int64) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE chat_id = $1 AND ended_at IS NULL`
	s, err := r.scanOne(r.db.Pool.QueryRow(ctx, query, chatID))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, err
}

// RecordActivity advances the actor's last-activity timestamp. GREATEST
// keeps the update monotonic under out-of-order delivery.
func (r *SessionRepository) RecordActivity(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error {
	column := "last_bot_activity_at"
	if fromUser {
		column = "last_user_activity_at"
	}
	query := fmt.Sprintf(`UPDATE sessions SET %s = GREATEST(%s, $2) WHERE id = $1`, column, column)
	if _, err := r.db.Pool.Exec(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// RecordMessage advances activity and message timestamps. Only user messages
// bump message_count: the count tracks user engagement, not total traffic.
func (r *SessionRepository) RecordMessage(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error {
	var query string
	if fromUser {
		query = `
			UPDATE sessions SET
				last_user_message_at = GREATEST(last_user_message_at, $2),
				last_user_activity_at = GREATEST(last_user_activity_at, $2),
				message_count = message_count + 1
			WHERE id = $1`
	} else {
		query = `
			UPDATE sessions SET
				last_bot_message_at = GREATEST(last_bot_message_at, $2),
				last_bot_activity_at = GREATEST(last_bot_activity_at, $2)
			WHERE id = $1`
	}
	if _, err := r.db.Pool.Exec(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

// Close sets the end timestamp if the session is still active and reports
// whether this call closed it. The message count is frozen simply by no
// further RecordMessage calls reaching a closed session.
func (r *SessionRepository) Close(ctx context.Context, sessionID int64, at time.Time) (bool, error) {
	query := `UPDATE sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`
	tag, err := r.db.Pool.Exec(ctx, query, sessionID, at)
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepository) ListIdleActive(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE ended_at IS NULL
		  AND GREATEST(
			COALESCE(last_user_activity_at, started_at),
			COALESCE(last_bot_activity_at, started_at)
		  ) < $1
		ORDER BY started_at`
	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(
			&s.ID, &s.ChatID, &s.DedupKey, &s.StartedAt, &s.EndedAt,
			&s.LastUserMessageAt, &s.LastUserActivityAt,
			&s.LastBotMessageAt, &s.LastBotActivityAt, &s.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) scanOne(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.ChatID, &s.DedupKey, &s.StartedAt, &s.EndedAt,
		&s.LastUserMessageAt, &s.LastUserActivityAt,
		&s.LastBotMessageAt, &s.LastBotActivityAt, &s.MessageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
