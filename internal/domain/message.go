package domain

import (
	"context"
	"fmt"
	"time"
)

// MessageKind distinguishes regular messages from reaction events
type MessageKind string

const (
	MessageKindMessage  MessageKind = "message"
	MessageKindReaction MessageKind = "reaction"
)

// Message represents one inbound/outbound message or reaction event. Payload
// and Reasoning are ContentCipher tokens; a nil Payload means the content
// was redacted, not that it never existed.
type Message struct {
	ID         int64       `json:"id"`
	ChatID     int64       `json:"chat_id"`
	SessionID  *int64      `json:"session_id,omitempty"`
	SenderID   string      `json:"sender_id"`
	ExternalID string      `json:"external_id"`
	Kind       MessageKind `json:"kind"`
	Payload    []byte      `json:"-"`
	Reasoning  []byte      `json:"-"`
	Redacted   bool        `json:"redacted"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// MessageDedupKey returns the deterministic upsert key for a message, so the
// same external event delivered twice lands on one row.
func MessageDedupKey(chatID int64, externalID string, kind MessageKind) string {
	return fmt.Sprintf("%d:%s:%s", chatID, externalID, kind)
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	// Upsert inserts the message keyed by (chat, external id, kind). On
	// conflict the payload, reasoning and session are replaced: edits are
	// an intended overwrite.
	Upsert(ctx context.Context, msg *Message) (*Message, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	ListByChat(ctx context.Context, chatID int64, limit int) ([]Message, error)
	ListBySession(ctx context.Context, sessionID int64, limit int) ([]Message, error)
	// Redact nulls the encrypted payload while keeping the row so foreign
	// references stay valid.
	Redact(ctx context.Context, id int64) error
}
