package postgres

import (
	"context"
	"fmt"

	"github.com/veldry/chatvault/internal/domain"
)

// NoteRepository implements domain.NoteRepository
type NoteRepository struct {
	db *DB
}

// NewNoteRepository creates a new context note repository
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Insert appends a note. The dedup key carries a time component, so
// identical content recorded at different times lands in distinct rows;
// a replay of the exact same recording converges on the existing row.
func (r *NoteRepository) Insert(ctx context.Context, note *domain.ContextNote) (*domain.ContextNote, error) {
	query := `
		INSERT INTO context_notes (chat_id, session_id, note_type, content_enc, dedup_key, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (dedup_key) DO UPDATE SET dedup_key = context_notes.dedup_key
		RETURNING id, chat_id, session_id, note_type, content_enc, dedup_key, recorded_at`
	var n domain.ContextNote
	err := r.db.Pool.QueryRow(ctx, query,
		note.ChatID,
		note.SessionID,
		note.Type,
		note.Content,
		note.DedupKey,
		note.RecordedAt,
	).Scan(&n.ID, &n.ChatID, &n.SessionID, &n.Type, &n.Content, &n.DedupKey, &n.RecordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	return &n, nil
}

func (r *NoteRepository) ListByChat(ctx context.Context, chatID int64, noteType domain.NoteType, limit int) ([]domain.ContextNote, error) {
	query := `
		SELECT id, chat_id, session_id, note_type, content_enc, dedup_key, recorded_at
		FROM context_notes
		WHERE chat_id = $1 AND ($2 = '' OR note_type = $2)
		ORDER BY recorded_at DESC
		LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, query, chatID, string(noteType), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.ContextNote
	for rows.Next() {
		var n domain.ContextNote
		if err := rows.Scan(&n.ID, &n.ChatID, &n.SessionID, &n.Type, &n.Content, &n.DedupKey, &n.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
