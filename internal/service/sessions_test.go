package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/veldry/chatvault/internal/domain"
)

func TestSessionService_Close_CascadesToGuidedSessions(t *testing.T) {
	mockSessions := new(MockSessionRepository)
	mockGuided := new(MockGuidedSessionRepository)
	svc := NewSessionService(mockSessions, mockGuided)

	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mockSessions.On("Close", ctx, int64(42), at).Return(true, nil)
	mockGuided.On("InactivateAllForSession", ctx, int64(42), at).Return(int64(2), nil)

	err := svc.Close(ctx, 42, at)
	assert.NoError(t, err)

	mockSessions.AssertExpectations(t)
	mockGuided.AssertExpectations(t)
}

func TestSessionService_Close_AlreadyClosedSkipsCascade(t *testing.T) {
	mockSessions := new(MockSessionRepository)
	mockGuided := new(MockGuidedSessionRepository)
	svc := NewSessionService(mockSessions, mockGuided)

	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mockSessions.On("Close", ctx, int64(42), at).Return(false, nil)

	err := svc.Close(ctx, 42, at)
	assert.NoError(t, err)

	mockGuided.AssertNotCalled(t, "InactivateAllForSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_RecordMessage_Delegates(t *testing.T) {
	mockSessions := new(MockSessionRepository)
	svc := NewSessionService(mockSessions, new(MockGuidedSessionRepository))

	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mockSessions.On("RecordMessage", ctx, int64(7), at, true).Return(nil)
	mockSessions.On("RecordMessage", ctx, int64(7), at, false).Return(nil)

	assert.NoError(t, svc.RecordMessage(ctx, 7, at, true))
	assert.NoError(t, svc.RecordMessage(ctx, 7, at, false))

	mockSessions.AssertExpectations(t)
}

func TestSessionService_HasResponded(t *testing.T) {
	mockSessions := new(MockSessionRepository)
	svc := NewSessionService(mockSessions, new(MockGuidedSessionRepository))

	ctx := context.Background()
	userAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	botAt := userAt.Add(time.Minute)

	t.Run("reply owed", func(t *testing.T) {
		mockSessions.On("GetByID", ctx, int64(1)).Return(&domain.Session{
			ID:                 1,
			LastUserActivityAt: &userAt,
		}, nil).Once()

		responded, err := svc.HasResponded(ctx, 1)
		assert.NoError(t, err)
		assert.False(t, responded)
	})

	t.Run("already replied", func(t *testing.T) {
		mockSessions.On("GetByID", ctx, int64(1)).Return(&domain.Session{
			ID:                 1,
			LastUserActivityAt: &userAt,
			LastBotActivityAt:  &botAt,
		}, nil).Once()

		responded, err := svc.HasResponded(ctx, 1)
		assert.NoError(t, err)
		assert.True(t, responded)
	})
}
