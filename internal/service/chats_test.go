package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

func newTestVault(t *testing.T) *security.KeyVault {
	t.Helper()
	vault, err := security.NewKeyVault("unit-test-master-secret")
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return vault
}

func TestChatService_GetOrCreate_WrapsFreshKey(t *testing.T) {
	mockChats := new(MockChatRepository)
	vault := newTestVault(t)
	svc := NewChatService(mockChats, vault, 10*time.Minute, 16)

	ctx := context.Background()

	var captured *domain.Chat
	mockChats.On("Upsert", ctx, mock.AnythingOfType("*domain.Chat")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Chat)
		}).
		Return(&domain.Chat{ID: 1, ExternalID: "ext-1", Kind: domain.ChatKindPrivate}, nil)

	chat, err := svc.GetOrCreate(ctx, "ext-1", domain.ChatKindPrivate, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), chat.ID)

	// The upserted wrapped key must open under the vault's master secret.
	assert.NotNil(t, captured)
	raw, err := vault.UnwrapKey(captured.WrappedKey)
	assert.NoError(t, err)
	assert.Len(t, raw, security.TenantKeySize)
}

func TestChatService_GetOrCreate_ReplayKeepsStoredKey(t *testing.T) {
	mockChats := new(MockChatRepository)
	vault := newTestVault(t)
	svc := NewChatService(mockChats, vault, 10*time.Minute, 16)

	ctx := context.Background()

	rawKey, _ := security.GenerateTenantKey()
	storedWrapped, _ := vault.WrapKey(rawKey)
	stored := &domain.Chat{ID: 1, ExternalID: "ext-1", WrappedKey: storedWrapped}

	// The repository resolves the conflict in favor of the existing row.
	mockChats.On("Upsert", ctx, mock.AnythingOfType("*domain.Chat")).Return(stored, nil).Twice()

	first, err := svc.GetOrCreate(ctx, "ext-1", domain.ChatKindPrivate, nil)
	assert.NoError(t, err)
	second, err := svc.GetOrCreate(ctx, "ext-1", domain.ChatKindPrivate, nil)
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.WrappedKey, second.WrappedKey)
}

func TestChatService_Key_CachesUnwrap(t *testing.T) {
	mockChats := new(MockChatRepository)
	vault := newTestVault(t)
	svc := NewChatService(mockChats, vault, 10*time.Minute, 16)

	ctx := context.Background()

	rawKey, _ := security.GenerateTenantKey()
	wrapped, _ := vault.WrapKey(rawKey)
	mockChats.On("GetByID", ctx, int64(1)).
		Return(&domain.Chat{ID: 1, WrappedKey: wrapped}, nil).Once()

	key1, err := svc.Key(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, rawKey, key1)

	// Second resolution is served from the cache; GetByID is not hit again.
	key2, err := svc.Key(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, rawKey, key2)

	mockChats.AssertExpectations(t)
}

func TestChatService_Key_MissingChat(t *testing.T) {
	mockChats := new(MockChatRepository)
	svc := NewChatService(mockChats, newTestVault(t), 10*time.Minute, 16)

	ctx := context.Background()
	mockChats.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound)

	_, err := svc.Key(ctx, 9)
	assert.True(t, errors.Is(err, domain.ErrKeyUnavailable))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestChatService_Key_CorruptWrappedKey(t *testing.T) {
	mockChats := new(MockChatRepository)
	vault := newTestVault(t)
	svc := NewChatService(mockChats, vault, 10*time.Minute, 16)

	ctx := context.Background()

	// Key wrapped under a different master secret.
	otherVault, _ := security.NewKeyVault("a-different-master-secret")
	rawKey, _ := security.GenerateTenantKey()
	foreignWrapped, _ := otherVault.WrapKey(rawKey)

	mockChats.On("GetByID", ctx, int64(1)).
		Return(&domain.Chat{ID: 1, WrappedKey: foreignWrapped}, nil)

	_, err := svc.Key(ctx, 1)
	assert.True(t, errors.Is(err, domain.ErrKeyCorruption))

	// Failed unwraps must not be cached: the next call hits the repo again.
	_, err = svc.Key(ctx, 1)
	assert.True(t, errors.Is(err, domain.ErrKeyCorruption))
	mockChats.AssertNumberOfCalls(t, "GetByID", 2)
}
