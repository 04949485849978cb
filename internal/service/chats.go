package service

import (
	"context"
	"fmt"
	"time"

	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

// KeyProvider resolves a chat id to its unwrapped tenant key. Every decrypt
// in the store goes through this: content is only ever readable via the
// owning chat's key.
type KeyProvider interface {
	Key(ctx context.Context, chatID int64) ([]byte, error)
}

// ChatService owns chat creation and tenant key resolution.
type ChatService struct {
	chats domain.ChatRepository
	vault *security.KeyVault
	keys  *security.TenantKeyCache
}

// NewChatService creates a chat service with a key cache over the vault.
func NewChatService(chats domain.ChatRepository, vault *security.KeyVault, cacheTTL time.Duration, cacheSize int) *ChatService {
	s := &ChatService{chats: chats, vault: vault}
	s.keys = security.NewTenantKeyCache(s.loadKey, cacheTTL, cacheSize)
	return s
}

// GetOrCreate returns the chat for the external conversation id, creating it
// on first contact. A fresh tenant key is generated and wrapped for the
// insert path; on replay the store returns the original wrapped key and the
// fresh one is discarded, so a chat's key is generated exactly once.
func (s *ChatService) GetOrCreate(ctx context.Context, externalID string, kind domain.ChatKind, title *string) (*domain.Chat, error) {
	rawKey, err := security.GenerateTenantKey()
	if err != nil {
		return nil, err
	}
	wrapped, err := s.vault.WrapKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap tenant key: %w", err)
	}

	chat, err := s.chats.Upsert(ctx, &domain.Chat{
		ExternalID: externalID,
		Kind:       kind,
		Title:      title,
		WrappedKey: wrapped,
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) GetByExternalID(ctx context.Context, externalID string) (*domain.Chat, error) {
	return s.chats.GetByExternalID(ctx, externalID)
}

func (s *ChatService) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	return s.chats.GetByID(ctx, id)
}

// Key implements KeyProvider via the tenant key cache.
func (s *ChatService) Key(ctx context.Context, chatID int64) ([]byte, error) {
	return s.keys.Get(ctx, chatID)
}

// loadKey is the cache-miss path: fetch the chat row, unwrap its key. A
// missing chat is a fatal ErrKeyUnavailable; a store outage is the transient
// variant and the caller may retry. Unwrap failures (ErrKeyCorruption)
// propagate untouched: they mean misconfiguration or an integrity breach.
func (s *ChatService) loadKey(ctx context.Context, chatID int64) ([]byte, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrKeyUnavailable, err)
	}
	return s.vault.UnwrapKey(chat.WrappedKey)
}
