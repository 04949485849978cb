package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/veldry/chatvault/internal/domain"
)

// ChatRepository implements domain.ChatRepository
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

const chatColumns = `id, external_id, kind, title, wrapped_key, created_at, updated_at`

// Upsert inserts the chat keyed by external_id. On conflict only kind, title
// and updated_at are written; wrapped_key is set exactly once at insert and
// the stored value always wins on replays.
func (r *ChatRepository) Upsert(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	query := `
		INSERT INTO chats (external_id, kind, title, wrapped_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (external_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			title = COALESCE(EXCLUDED.title, chats.title),
			updated_at = now()
		RETURNING ` + chatColumns
	var c domain.Chat
	err := r.db.Pool.QueryRow(ctx, query,
		chat.ExternalID,
		chat.Kind,
		chat.Title,
		chat.WrappedKey,
	).Scan(&c.ID, &c.ExternalID, &c.Kind, &c.Title, &c.WrappedKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert chat: %w", err)
	}
	return &c, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *ChatRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE external_id = $1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, query, externalID))
}

func (r *ChatRepository) scanOne(row pgx.Row) (*domain.Chat, error) {
	var c domain.Chat
	err := row.Scan(&c.ID, &c.ExternalID, &c.Kind, &c.Title, &c.WrappedKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &c, nil
}
