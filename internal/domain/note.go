package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// NoteType is the closed set of durable facts the system records about a chat
type NoteType string

const (
	NoteSessionSummary  NoteType = "session_summary"
	NoteMemory          NoteType = "memory"
	NoteProfileSnapshot NoteType = "profile_snapshot"
)

// ContextNote represents one durable fact or summary recorded about a chat.
// Append-only: notes are never updated or deleted by this subsystem.
type ContextNote struct {
	ID         int64     `json:"id"`
	ChatID     int64     `json:"chat_id"`
	SessionID  *int64    `json:"session_id,omitempty"`
	Type       NoteType  `json:"type"`
	Content    []byte    `json:"-"`
	DedupKey   string    `json:"-"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NoteDedupKey derives the unique record key for a note. It hashes the
// recording time along with identity and content so identical content
// recorded at different times yields distinct, independently retrievable
// rows.
func NoteDedupKey(chatID int64, noteType NoteType, content []byte, recordedAt time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d|", chatID, noteType, recordedAt.UTC().UnixNano())
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// NoteRepository defines the interface for context note storage
type NoteRepository interface {
	Insert(ctx context.Context, note *ContextNote) (*ContextNote, error)
	ListByChat(ctx context.Context, chatID int64, noteType NoteType, limit int) ([]ContextNote, error)
}
