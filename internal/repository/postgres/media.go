package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/veldry/chatvault/internal/domain"
)

// MediaRepository implements domain.MediaRepository
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, chat_id, message_id, provider_file_id, provider_unique_id,
	mime_type, size_bytes, data_enc, created_at, last_accessed_at`

// Upsert inserts the file keyed by (chat, message, provider unique id). A
// replayed upload returns the existing row; the stored encrypted payload is
// never overwritten and last_accessed_at moves only on reads.
func (r *MediaRepository) Upsert(ctx context.Context, media *domain.MediaFile) (*domain.MediaFile, error) {
	query := `
		INSERT INTO media_files (chat_id, message_id, provider_file_id, provider_unique_id, mime_type, size_bytes, data_enc, dedup_key, created_at, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (dedup_key) DO UPDATE SET provider_file_id = EXCLUDED.provider_file_id
		RETURNING ` + mediaColumns
	out, err := r.scanOne(r.db.Pool.QueryRow(ctx, query,
		media.ChatID,
		media.MessageID,
		media.ProviderFileID,
		media.ProviderUniqueID,
		media.MimeType,
		media.SizeBytes,
		media.Data,
		domain.MediaDedupKey(media.ChatID, media.MessageID, media.ProviderUniqueID),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert media file: %w", err)
	}
	return out, nil
}

func (r *MediaRepository) GetByID(ctx context.Context, id int64) (*domain.MediaFile, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files WHERE id = $1`
	m, err := r.scanOne(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get media file: %w", err)
	}
	return m, err
}

func (r *MediaRepository) ListByMessage(ctx context.Context, messageID int64) ([]domain.MediaFile, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files WHERE message_id = $1 ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media files: %w", err)
	}
	defer rows.Close()

	var files []domain.MediaFile
	for rows.Next() {
		var m domain.MediaFile
		if err := rows.Scan(
			&m.ID, &m.ChatID, &m.MessageID, &m.ProviderFileID, &m.ProviderUniqueID,
			&m.MimeType, &m.SizeBytes, &m.Data, &m.CreatedAt, &m.LastAccessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan media file: %w", err)
		}
		files = append(files, m)
	}
	return files, rows.Err()
}

func (r *MediaRepository) TouchLastAccessed(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE media_files SET last_accessed_at = GREATEST(last_accessed_at, $2) WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to touch media file: %w", err)
	}
	return nil
}

func (r *MediaRepository) scanOne(row pgx.Row) (*domain.MediaFile, error) {
	var m domain.MediaFile
	err := row.Scan(
		&m.ID, &m.ChatID, &m.MessageID, &m.ProviderFileID, &m.ProviderUniqueID,
		&m.MimeType, &m.SizeBytes, &m.Data, &m.CreatedAt, &m.LastAccessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
