package domain

import (
	"context"
	"fmt"
	"time"
)

// MediaFile represents one uploaded binary asset, encrypted at rest. A file
// is created once per (chat, message, provider unique id); LastAccessedAt is
// refreshed on every read, never on write.
type MediaFile struct {
	ID               int64     `json:"id"`
	ChatID           int64     `json:"chat_id"`
	MessageID        int64     `json:"message_id"`
	ProviderFileID   string    `json:"provider_file_id"`
	ProviderUniqueID string    `json:"provider_unique_id"`
	MimeType         string    `json:"mime_type"`
	SizeBytes        int64     `json:"size_bytes"`
	Data             []byte    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	LastAccessedAt   time.Time `json:"last_accessed_at"`
}

// MediaDedupKey returns the deterministic upsert key for a media file.
func MediaDedupKey(chatID, messageID int64, providerUniqueID string) string {
	return fmt.Sprintf("%d:%d:%s", chatID, messageID, providerUniqueID)
}

// MediaRepository defines the interface for media storage
type MediaRepository interface {
	// Upsert inserts the file; a replayed upload returns the existing row
	// with its original encrypted payload untouched.
	Upsert(ctx context.Context, media *MediaFile) (*MediaFile, error)
	GetByID(ctx context.Context, id int64) (*MediaFile, error)
	ListByMessage(ctx context.Context, messageID int64) ([]MediaFile, error)
	TouchLastAccessed(ctx context.Context, id int64, at time.Time) error
}
