package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/veldry/chatvault/internal/domain"
)

// MessageRepository implements domain.MessageRepository
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, chat_id, session_id, sender_id, external_id, kind,
	payload_enc, reasoning_enc, payload_enc IS NULL, created_at, updated_at`

// Upsert inserts the message keyed by (chat, external id, kind). Conflicts
// replace payload, reasoning and session: a redelivered edit is an intended
// overwrite, unlike every other entity in the store.
func (r *MessageRepository) Upsert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	query := `
		INSERT INTO messages (chat_id, session_id, sender_id, external_id, kind, dedup_key, payload_enc, reasoning_enc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (dedup_key) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			payload_enc = EXCLUDED.payload_enc,
			reasoning_enc = EXCLUDED.reasoning_enc,
			updated_at = now()
		RETURNING ` + messageColumns
	out, err := r.scanOne(r.db.Pool.QueryRow(ctx, query,
		msg.ChatID,
		msg.SessionID,
		msg.SenderID,
		msg.ExternalID,
		msg.Kind,
		domain.MessageDedupKey(msg.ChatID, msg.ExternalID, msg.Kind),
		msg.Payload,
		msg.Reasoning,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert message: %w", err)
	}
	return out, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	m, err := r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, err
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1
		ORDER BY id DESC
		LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *MessageRepository) ListBySession(ctx context.Context, sessionID int64, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// Redact nulls the encrypted payload while the row persists, so the id stays
// stable for foreign references. A NULL payload reads back as "content
// redacted", never "content absent".
func (r *MessageRepository) Redact(ctx context.Context, id int64) error {
	query := `UPDATE messages SET payload_enc = NULL, reasoning_enc = NULL, updated_at = now() WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to redact message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MessageRepository) scanOne(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.ChatID, &m.SessionID, &m.SenderID, &m.ExternalID, &m.Kind,
		&m.Payload, &m.Reasoning, &m.Redacted, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) scanAll(rows pgx.Rows) ([]domain.Message, error) {
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.ChatID, &m.SessionID, &m.SenderID, &m.ExternalID, &m.Kind,
			&m.Payload, &m.Reasoning, &m.Redacted, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
