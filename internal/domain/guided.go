package domain

import (
	"context"
	"time"
)

// FlowType identifies a guided flow. The set is closed but extensible:
// new flows add a constant, the store treats it as an opaque value.
type FlowType string

const (
	FlowOnboarding FlowType = "onboarding"
	FlowJournaling FlowType = "journaling"
	FlowCheckin    FlowType = "checkin"
)

// GuidedSessionState is the state of a guided flow attempt. Transitions are
// one-directional: active -> complete or active -> incomplete, never back.
type GuidedSessionState string

const (
	GuidedStateActive     GuidedSessionState = "active"
	GuidedStateComplete   GuidedSessionState = "complete"
	GuidedStateIncomplete GuidedSessionState = "incomplete"
)

// GuidedSession represents one attempt at a guided flow, scoped to exactly
// one session. Metadata is an encrypted opaque blob holding step-local flow
// state. Historical attempts for the same flow type are preserved, never
// overwritten.
type GuidedSession struct {
	ID          int64              `json:"id"`
	SessionID   int64              `json:"session_id"`
	ChatID      int64              `json:"chat_id"`
	FlowType    FlowType           `json:"flow_type"`
	State       GuidedSessionState `json:"state"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Metadata    []byte             `json:"-"`
}

// Expired reports whether an active guided session has outlived ttl.
// Expiry is a derived predicate: it never changes state by itself, it tells
// a sweeper that Inactivate is due.
func (g *GuidedSession) Expired(now time.Time, ttl time.Duration) bool {
	return g.State == GuidedStateActive && now.Sub(g.StartedAt) >= ttl
}

// GuidedSessionRepository defines the interface for guided session storage
type GuidedSessionRepository interface {
	// Create always inserts a new row, even when prior attempts of the same
	// flow type exist (audit trail).
	Create(ctx context.Context, gs *GuidedSession) (*GuidedSession, error)
	GetByID(ctx context.Context, id int64) (*GuidedSession, error)
	ListBySession(ctx context.Context, sessionID int64) ([]GuidedSession, error)
	// Transition moves an active row to a terminal state. Returns
	// ErrInvalidStateTransition when the row is already terminal.
	Transition(ctx context.Context, id int64, to GuidedSessionState, at time.Time) error
	// InactivateAllForSession marks every still-active attempt of the
	// session incomplete and returns how many rows it touched.
	InactivateAllForSession(ctx context.Context, sessionID int64, at time.Time) (int64, error)
	ListActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]GuidedSession, error)
	UpdateMetadata(ctx context.Context, id int64, metadata []byte) error
}
