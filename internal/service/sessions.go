package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/veldry/chatvault/internal/domain"
)

// SessionService owns the session lifecycle: creation, activity tracking and
// closing. Ordering within one chat is the caller's responsibility; the
// get-or-create race-safety comes from the storage layer's atomic upsert.
type SessionService struct {
	sessions domain.SessionRepository
	guided   domain.GuidedSessionRepository
}

// NewSessionService creates a new session service
func NewSessionService(sessions domain.SessionRepository, guided domain.GuidedSessionRepository) *SessionService {
	return &SessionService{sessions: sessions, guided: guided}
}

// GetOrCreateActive returns the chat's active session, creating one started
// at the given event time if none exists. Concurrent callers converge on the
// same row.
func (s *SessionService) GetOrCreateActive(ctx context.Context, chatID int64, at time.Time) (*domain.Session, error) {
	return s.sessions.GetOrCreateActive(ctx, chatID, at)
}

func (s *SessionService) Get(ctx context.Context, sessionID int64) (*domain.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *SessionService) GetActiveByChat(ctx context.Context, chatID int64) (*domain.Session, error) {
	return s.sessions.GetActiveByChat(ctx, chatID)
}

// RecordActivity advances the actor's last-activity timestamp; out-of-order
// events never move it backward.
func (s *SessionService) RecordActivity(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error {
	return s.sessions.RecordActivity(ctx, sessionID, at, fromUser)
}

// RecordMessage records activity and, for user-originated messages only,
// bumps the engagement count.
func (s *SessionService) RecordMessage(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error {
	return s.sessions.RecordMessage(ctx, sessionID, at, fromUser)
}

// Close ends the session and cascades to any still-active guided session
// scoped to it, marking each incomplete. The cascade is mandatory: a closed
// session must never leave an orphaned active flow. Closing an already
// closed session is a no-op.
func (s *SessionService) Close(ctx context.Context, sessionID int64, at time.Time) error {
	closed, err := s.sessions.Close(ctx, sessionID, at)
	if err != nil {
		return err
	}
	if !closed {
		return nil
	}

	n, err := s.guided.InactivateAllForSession(ctx, sessionID, at)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().
			Int64("session_id", sessionID).
			Int64("inactivated", n).
			Msg("Cascaded session close to active guided sessions")
	}
	return nil
}

// ListIdleActive returns active sessions with no activity from either side
// since cutoff.
func (s *SessionService) ListIdleActive(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	return s.sessions.ListIdleActive(ctx, cutoff)
}

// HasResponded reports whether a reply is owed for the session: true when no
// user activity has occurred or the assistant spoke after the user last did.
func (s *SessionService) HasResponded(ctx context.Context, sessionID int64) (bool, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.HasRespondedSinceLastUserActivity(), nil
}
