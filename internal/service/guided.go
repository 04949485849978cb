package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/veldry/chatvault/internal/domain"
	"github.com/veldry/chatvault/internal/security"
)

// DecryptedGuidedSession is a guided session with its metadata blob opened.
type DecryptedGuidedSession struct {
	domain.GuidedSession
	Metadata map[string]any
}

// GuidedService owns the guided flow state machine. Attempts are append-only
// rows; transitions are one-directional and terminal states are final.
type GuidedService struct {
	guided domain.GuidedSessionRepository
	keys   KeyProvider
	ttl    time.Duration
}

// NewGuidedService creates a new guided session service
func NewGuidedService(guided domain.GuidedSessionRepository, keys KeyProvider, ttl time.Duration) *GuidedService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &GuidedService{guided: guided, keys: keys, ttl: ttl}
}

// Start begins a new attempt at the flow, even when prior attempts of the
// same flow type exist for the chat. Initial metadata, if any, is encrypted
// under the owning chat's key.
func (s *GuidedService) Start(ctx context.Context, sessionID, chatID int64, flowType domain.FlowType, at time.Time, metadata map[string]any) (*domain.GuidedSession, error) {
	blob, err := s.sealMetadata(ctx, chatID, metadata)
	if err != nil {
		return nil, err
	}
	return s.guided.Create(ctx, &domain.GuidedSession{
		SessionID: sessionID,
		ChatID:    chatID,
		FlowType:  flowType,
		StartedAt: at,
		Metadata:  blob,
	})
}

// Complete marks the attempt successful.
func (s *GuidedService) Complete(ctx context.Context, id int64, at time.Time) error {
	return s.guided.Transition(ctx, id, domain.GuidedStateComplete, at)
}

// Inactivate marks the attempt incomplete, for timeout or abandonment.
func (s *GuidedService) Inactivate(ctx context.Context, id int64, at time.Time) error {
	return s.guided.Transition(ctx, id, domain.GuidedStateIncomplete, at)
}

// UpdateMetadata re-encrypts and replaces the attempt's metadata. Flows use
// this to persist step-local state between turns.
func (s *GuidedService) UpdateMetadata(ctx context.Context, id, chatID int64, metadata map[string]any) error {
	blob, err := s.sealMetadata(ctx, chatID, metadata)
	if err != nil {
		return err
	}
	return s.guided.UpdateMetadata(ctx, id, blob)
}

// Get returns the attempt with metadata decrypted under the owning chat's key.
func (s *GuidedService) Get(ctx context.Context, id int64) (*DecryptedGuidedSession, error) {
	gs, err := s.guided.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decrypt(ctx, gs)
}

// ListBySession returns every attempt scoped to the session, decrypted.
func (s *GuidedService) ListBySession(ctx context.Context, sessionID int64) ([]DecryptedGuidedSession, error) {
	rows, err := s.guided.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]DecryptedGuidedSession, 0, len(rows))
	for i := range rows {
		d, err := s.decrypt(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// Expired reports whether an active attempt has outlived the configured TTL.
// Derived only: the sweeper acts on it by calling Inactivate.
func (s *GuidedService) Expired(gs *domain.GuidedSession, now time.Time) bool {
	return gs.Expired(now, s.ttl)
}

// ListExpired returns active attempts whose TTL has elapsed as of now.
// Attempts are returned undecrypted; the sweeper never needs the metadata.
func (s *GuidedService) ListExpired(ctx context.Context, now time.Time) ([]domain.GuidedSession, error) {
	return s.guided.ListActiveStartedBefore(ctx, now.Add(-s.ttl))
}

func (s *GuidedService) sealMetadata(ctx context.Context, chatID int64, metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	key, err := s.keys.Key(ctx, chatID)
	if err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return security.EncryptContent(key, plaintext)
}

func (s *GuidedService) decrypt(ctx context.Context, gs *domain.GuidedSession) (*DecryptedGuidedSession, error) {
	out := &DecryptedGuidedSession{GuidedSession: *gs}
	if gs.Metadata == nil {
		return out, nil
	}

	key, err := s.keys.Key(ctx, gs.ChatID)
	if err != nil {
		return nil, err
	}
	plaintext, err := security.DecryptContent(key, gs.Metadata)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plaintext, &out.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return out, nil
}
