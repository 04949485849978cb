package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

func TestNoteService_Record_DedupKeyFromPlaintext(t *testing.T) {
	mockNotes := new(MockNoteRepository)
	key := testChatKey(t)
	svc := NewNoteService(mockNotes, &staticKeyProvider{key: key})

	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var captured *domain.ContextNote
	mockNotes.On("Insert", ctx, mock.AnythingOfType("*domain.ContextNote")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.ContextNote)
		}).
		Return(&domain.ContextNote{ID: 1}, nil)

	_, err := svc.Record(ctx, 7, nil, domain.NoteMemory, "prefers morning check-ins", at)
	assert.NoError(t, err)

	// The dedup key is computed over the plaintext, so a replayed write
	// resolves to the same row even though each encryption differs.
	assert.Equal(t, domain.NoteDedupKey(7, domain.NoteMemory, []byte("prefers morning check-ins"), at), captured.DedupKey)
	assert.NotContains(t, string(captured.Content), "morning")

	plaintext, err := security.DecryptContent(key, captured.Content)
	assert.NoError(t, err)
	assert.Equal(t, "prefers morning check-ins", string(plaintext))
}

func TestNoteService_ListByChat_Decrypts(t *testing.T) {
	mockNotes := new(MockNoteRepository)
	key := testChatKey(t)
	svc := NewNoteService(mockNotes, &staticKeyProvider{key: key})

	ctx := context.Background()
	content, _ := security.EncryptContent(key, []byte("week 3 summary"))
	mockNotes.On("ListByChat", ctx, int64(7), domain.NoteSessionSummary, 10).Return([]domain.ContextNote{
		{ID: 1, ChatID: 7, Type: domain.NoteSessionSummary, Content: content},
	}, nil)

	notes, err := svc.ListByChat(ctx, 7, domain.NoteSessionSummary, 10)
	assert.NoError(t, err)
	assert.Len(t, notes, 1)
	assert.Equal(t, "week 3 summary", notes[0].Text)
}

func TestMediaService_Get_TouchFailureDoesNotFailRead(t *testing.T) {
	mockMedia := new(MockMediaRepository)
	key := testChatKey(t)
	svc := NewMediaService(mockMedia, &staticKeyProvider{key: key})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	data, _ := security.EncryptContent(key, []byte{0xde, 0xad, 0xbe, 0xef})
	mockMedia.On("GetByID", ctx, int64(3)).Return(&domain.MediaFile{ID: 3, ChatID: 7, Data: data}, nil)
	mockMedia.On("TouchLastAccessed", ctx, int64(3), now).Return(assert.AnError)

	got, err := svc.Get(ctx, 3)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got.Bytes)
	mockMedia.AssertExpectations(t)
}

func TestMediaService_Store_EncryptsData(t *testing.T) {
	mockMedia := new(MockMediaRepository)
	key := testChatKey(t)
	svc := NewMediaService(mockMedia, &staticKeyProvider{key: key})

	ctx := context.Background()
	var captured *domain.MediaFile
	mockMedia.On("Upsert", ctx, mock.AnythingOfType("*domain.MediaFile")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.MediaFile)
		}).
		Return(&domain.MediaFile{ID: 1}, nil)

	_, err := svc.Store(ctx, StoreMediaInput{
		ChatID:           7,
		MessageID:        2,
		ProviderUniqueID: "uniq-1",
		MimeType:         "image/jpeg",
		SizeBytes:        4,
		Data:             []byte("raw-jpeg-bytes"),
	})
	assert.NoError(t, err)
	assert.NotEqual(t, []byte("raw-jpeg-bytes"), captured.Data)

	plaintext, err := security.DecryptContent(key, captured.Data)
	assert.NoError(t, err)
	assert.Equal(t, "raw-jpeg-bytes", string(plaintext))
}
