package domain

import (
	"context"
	"time"
)

// ChatKind represents the kind of external conversation
type ChatKind string

const (
	ChatKindPrivate ChatKind = "private"
	ChatKindGroup   ChatKind = "group"
)

// Chat represents one external conversation, the unit of encryption
// isolation. WrappedKey is the chat's symmetric key sealed under the master
// secret; it is written once at creation and never rotated or overwritten.
type Chat struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	Kind       ChatKind  `json:"kind"`
	Title      *string   `json:"title,omitempty"`
	WrappedKey []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChatRepository defines the interface for chat storage
type ChatRepository interface {
	// Upsert inserts the chat keyed by ExternalID. On conflict only kind,
	// title and updated_at are touched; the stored wrapped key always wins.
	Upsert(ctx context.Context, chat *Chat) (*Chat, error)
	GetByID(ctx context.Context, id int64) (*Chat, error)
	GetByExternalID(ctx context.Context, externalID string) (*Chat, error)
}
