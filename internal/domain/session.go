package domain

import (
	"context"
	"fmt"
	"time"
)

// Session represents one continuous period of conversational activity for a
// chat. EndedAt == nil means the session is active; at most one active
// session exists per chat at any time (enforced by the store).
type Session struct {
	ID                 int64      `json:"id"`
	ChatID             int64      `json:"chat_id"`
	DedupKey           string     `json:"-"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	LastUserMessageAt  *time.Time `json:"last_user_message_at,omitempty"`
	LastUserActivityAt *time.Time `json:"last_user_activity_at,omitempty"`
	LastBotMessageAt   *time.Time `json:"last_bot_message_at,omitempty"`
	LastBotActivityAt  *time.Time `json:"last_bot_activity_at,omitempty"`
	MessageCount       int        `json:"message_count"`
}

// Active reports whether the session has not been closed yet.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// HasRespondedSinceLastUserActivity reports whether a reply is not owed:
// true if no user activity has ever occurred, or the last assistant activity
// is strictly after the last user activity.
func (s *Session) HasRespondedSinceLastUserActivity() bool {
	if s.LastUserActivityAt == nil {
		return true
	}
	if s.LastBotActivityAt == nil {
		return false
	}
	return s.LastBotActivityAt.After(*s.LastUserActivityAt)
}

// SessionDedupKey returns the deterministic upsert key for a session started
// for the given chat at the given time. Deterministic so that replayed
// creation events converge on one row.
func SessionDedupKey(chatID int64, startedAt time.Time) string {
	return fmt.Sprintf("%d:%d", chatID, startedAt.UTC().Unix())
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	// GetOrCreateActive returns the chat's active session, creating one
	// started at startedAt if none exists. Race-safe: concurrent callers
	// converge on the same row.
	GetOrCreateActive(ctx context.Context, chatID int64, startedAt time.Time) (*Session, error)
	GetByID(ctx context.Context, id int64) (*Session, error)
	GetActiveByChat(ctx context.Context, chatID int64) (*Session, error)
	// RecordActivity advances the actor's last-activity timestamp. Monotonic:
	// an earlier timestamp never moves the stored value backward.
	RecordActivity(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error
	// RecordMessage advances activity and message timestamps; only
	// user-originated messages increment the message count.
	RecordMessage(ctx context.Context, sessionID int64, at time.Time, fromUser bool) error
	// Close sets the end timestamp if the session is still active and
	// reports whether this call closed it.
	Close(ctx context.Context, sessionID int64, at time.Time) (bool, error)
	// ListIdleActive returns active sessions with no activity since cutoff.
	ListIdleActive(ctx context.Context, cutoff time.Time) ([]Session, error)
}
