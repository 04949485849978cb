package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

// DecryptedMedia is a media file with its bytes opened.
type DecryptedMedia struct {
	domain.MediaFile
	Bytes []byte
}

// StoreMediaInput carries one uploaded binary asset.
type StoreMediaInput struct {
	ChatID           int64
	MessageID        int64
	ProviderFileID   string
	ProviderUniqueID string
	MimeType         string
	SizeBytes        int64
	Data             []byte
}

// MediaService persists uploaded binary assets encrypted under the owning
// chat's key.
type MediaService struct {
	media domain.MediaRepository
	keys  KeyProvider
	now   func() time.Time
}

// NewMediaService creates a new media service
func NewMediaService(media domain.MediaRepository, keys KeyProvider) *MediaService {
	return &MediaService{media: media, keys: keys, now: time.Now}
}

// Store encrypts and persists the asset. A replayed upload of the same
// (chat, message, provider unique id) returns the existing row.
func (s *MediaService) Store(ctx context.Context, in StoreMediaInput) (*domain.MediaFile, error) {
	key, err := s.keys.Key(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	encrypted, err := security.EncryptContent(key, in.Data)
	if err != nil {
		return nil, err
	}

	return s.media.Upsert(ctx, &domain.MediaFile{
		ChatID:           in.ChatID,
		MessageID:        in.MessageID,
		ProviderFileID:   in.ProviderFileID,
		ProviderUniqueID: in.ProviderUniqueID,
		MimeType:         in.MimeType,
		SizeBytes:        in.SizeBytes,
		Data:             encrypted,
	})
}

// Get returns the decrypted asset and refreshes its last-accessed timestamp.
func (s *MediaService) Get(ctx context.Context, id int64) (*DecryptedMedia, error) {
	media, err := s.media.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Key(ctx, media.ChatID)
	if err != nil {
		return nil, err
	}
	data, err := security.DecryptContent(key, media.Data)
	if err != nil {
		return nil, err
	}

	// Reads refresh last_accessed; the read itself should not fail on a
	// bookkeeping error.
	if err := s.media.TouchLastAccessed(ctx, id, s.now()); err != nil {
		log.Warn().Err(err).Int64("media_id", id).Msg("Failed to touch media last_accessed")
	}

	return &DecryptedMedia{MediaFile: *media, Bytes: data}, nil
}

// ListByMessage returns the message's assets decrypted.
func (s *MediaService) ListByMessage(ctx context.Context, messageID int64) ([]DecryptedMedia, error) {
	files, err := s.media.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	out := make([]DecryptedMedia, 0, len(files))
	for i := range files {
		key, err := s.keys.Key(ctx, files[i].ChatID)
		if err != nil {
			return nil, err
		}
		data, err := security.DecryptContent(key, files[i].Data)
		if err != nil {
			return nil, err
		}
		out = append(out, DecryptedMedia{MediaFile: files[i], Bytes: data})
	}
	return out, nil
}
