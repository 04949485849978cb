package service

import (
	"context"
	"time"

	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

// DecryptedNote is a context note with its content opened.
type DecryptedNote struct {
	domain.ContextNote
	Text string
}

// NoteService records durable facts about a chat, append-only.
type NoteService struct {
	notes domain.NoteRepository
	keys  KeyProvider
}

// NewNoteService creates a new context note service
func NewNoteService(notes domain.NoteRepository, keys KeyProvider) *NoteService {
	return &NoteService{notes: notes, keys: keys}
}

// Record appends a note. The record key includes the recording time, so
// identical content recorded at different moments stays independently
// retrievable.
func (s *NoteService) Record(ctx context.Context, chatID int64, sessionID *int64, noteType domain.NoteType, content string, at time.Time) (*domain.ContextNote, error) {
	key, err := s.keys.Key(ctx, chatID)
	if err != nil {
		return nil, err
	}
	encrypted, err := security.EncryptContent(key, []byte(content))
	if err != nil {
		return nil, err
	}

	return s.notes.Insert(ctx, &domain.ContextNote{
		ChatID:     chatID,
		SessionID:  sessionID,
		Type:       noteType,
		Content:    encrypted,
		DedupKey:   domain.NoteDedupKey(chatID, noteType, []byte(content), at),
		RecordedAt: at,
	})
}

// ListByChat returns the chat's notes, newest first, decrypted. An empty
// noteType matches all types.
func (s *NoteService) ListByChat(ctx context.Context, chatID int64, noteType domain.NoteType, limit int) ([]DecryptedNote, error) {
	notes, err := s.notes.ListByChat(ctx, chatID, noteType, limit)
	if err != nil {
		return nil, err
	}

	out := make([]DecryptedNote, 0, len(notes))
	for i := range notes {
		key, err := s.keys.Key(ctx, notes[i].ChatID)
		if err != nil {
			return nil, err
		}
		text, err := security.DecryptContent(key, notes[i].Content)
		if err != nil {
			return nil, err
		}
		out = append(out, DecryptedNote{ContextNote: notes[i], Text: string(text)})
	}
	return out, nil
}
