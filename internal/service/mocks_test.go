package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/veldry/chatvault/internal/domain"
)

// MockChatRepository mocks the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Upsert(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	args := m.Called(ctx, chat)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

func (m *MockChatRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Chat, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chat), args.Error(1)
}

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetOrCreateActive(ctx context.Context, chatID int64, startedAt time.Time) (*domain.Session, error) {
	args := m.Called(ctx, chatID, startedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) GetActiveByChat(ctx context.Context, chatID int64) (*domain.Session, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) RecordActivity(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error {
	args := m.Called(ctx, sessionID, at, fromUser)
	return args.Error(0)
}

func (m *MockSessionRepository) RecordMessage(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error {
	args := m.Called(ctx, sessionID, at, fromUser)
	return args.Error(0)
}

func (m *MockSessionRepository) Close(ctx context.Context, sessionID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, sessionID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) ListIdleActive(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

// MockGuidedSessionRepository mocks the GuidedSessionRepository interface
type MockGuidedSessionRepository struct {
	mock.Mock
}

func (m *MockGuidedSessionRepository) Create(ctx context.Context, gs *domain.GuidedSession) (*domain.GuidedSession, error) {
	args := m.Called(ctx, gs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuidedSession), args.Error(1)
}

func (m *MockGuidedSessionRepository) GetByID(ctx context.Context, id int64) (*domain.GuidedSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuidedSession), args.Error(1)
}

func (m *MockGuidedSessionRepository) ListBySession(ctx context.Context, sessionID int64) ([]domain.GuidedSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GuidedSession), args.Error(1)
}

func (m *MockGuidedSessionRepository) Transition(ctx context.Context, id int64, to domain.GuidedSessionState, at time.Time) error {
	args := m.Called(ctx, id, to, at)
	return args.Error(0)
}

func (m *MockGuidedSessionRepository) InactivateAllForSession(ctx context.Context, sessionID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, sessionID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGuidedSessionRepository) ListActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.GuidedSession, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GuidedSession), args.Error(1)
}

func (m *MockGuidedSessionRepository) UpdateMetadata(ctx context.Context, id int64, metadata []byte) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Upsert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListByChat(ctx context.Context, chatID int64, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID int64, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Redact(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNoteRepository mocks the NoteRepository interface
type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) Insert(ctx context.Context, note *domain.ContextNote) (*domain.ContextNote, error) {
	args := m.Called(ctx, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContextNote), args.Error(1)
}

func (m *MockNoteRepository) ListByChat(ctx context.Context, chatID int64, noteType domain.NoteType, limit int) ([]domain.ContextNote, error) {
	args := m.Called(ctx, chatID, noteType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContextNote), args.Error(1)
}

// MockMediaRepository mocks the MediaRepository interface
type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) Upsert(ctx context.Context, media *domain.MediaFile) (*domain.MediaFile, error) {
	args := m.Called(ctx, media)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaFile), args.Error(1)
}

func (m *MockMediaRepository) GetByID(ctx context.Context, id int64) (*domain.MediaFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaFile), args.Error(1)
}

func (m *MockMediaRepository) ListByMessage(ctx context.Context, messageID int64) ([]domain.MediaFile, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MediaFile), args.Error(1)
}

func (m *MockMediaRepository) TouchLastAccessed(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// staticKeyProvider returns the same key for every chat; tests that need
// per-chat isolation use two providers with different keys.
type staticKeyProvider struct {
	key []byte
	err error
}

func (p *staticKeyProvider) Key(ctx context.Context, chatID int64) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.key, nil
}
