package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/veldry/chatvault/internal/domain"
)

const sweeperJobName = "session-sweeper"

// SessionCloser is the slice of the session service the sweeper needs.
type SessionCloser interface {
	ListIdleActive(ctx context.Context, cutoff time.Time) ([]domain.Session, error)
	Close(ctx context.Context, sessionID int64, at time.Time) error
}

// GuidedInactivator is the slice of the guided session service the sweeper
// needs.
type GuidedInactivator interface {
	ListExpired(ctx context.Context, now time.Time) ([]domain.GuidedSession, error)
	Inactivate(ctx context.Context, id int64, at time.Time) error
}

// Lease fences the sweeper across instances. Nil lease means single-instance
// deployment; the in-process lock registry still serializes overlapping runs.
type Lease interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Sweeper closes idle sessions and inactivates expired guided sessions on a
// fixed interval. Session close cascades to the session's active guided
// sessions inside SessionCloser, so the expiry pass only has to handle
// attempts whose parent session is still open.
type Sweeper struct {
	sessions SessionCloser
	guided   GuidedInactivator
	state    *StateStore
	locks    *LockRegistry
	lease    Lease

	idleTimeout time.Duration
	interval    time.Duration
	now         func() time.Time
}

// NewSweeper creates a new sweeper. lease may be nil.
func NewSweeper(sessions SessionCloser, guided GuidedInactivator, state *StateStore, locks *LockRegistry, lease Lease, idleTimeout, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		sessions:    sessions,
		guided:      guided,
		state:       state,
		locks:       locks,
		lease:       lease,
		idleTimeout: idleTimeout,
		interval:    interval,
		now:         time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled. The first
// sweep happens one interval after start, not immediately, so a crash-looping
// process does not hammer the database.
func (s *Sweeper) Run(ctx context.Context) {
	if last, ok, err := s.state.LastSweptAt(ctx, sweeperJobName); err != nil {
		log.Warn().Err(err).Msg("Failed to load sweeper watermark")
	} else if ok {
		log.Info().Time("last_swept_at", last).Msg("Resuming session sweeper")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Safe to call concurrently; overlapping calls serialize
// on the job's named lock, and in multi-instance deployments the lease lets
// at most one instance sweep per interval.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.locks.Do(sweeperJobName, func() {
		if s.lease != nil {
			ok, err := s.lease.Acquire(ctx, sweeperJobName, s.interval)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to acquire sweeper lease, skipping pass")
				return
			}
			if !ok {
				return
			}
			defer func() {
				if err := s.lease.Release(ctx, sweeperJobName); err != nil {
					log.Warn().Err(err).Msg("Failed to release sweeper lease")
				}
			}()
		}
		s.sweep(ctx)
	})
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := s.now()

	closed := s.closeIdleSessions(ctx, now)
	inactivated := s.inactivateExpiredGuided(ctx, now)

	if closed > 0 || inactivated > 0 {
		log.Info().
			Int("sessions_closed", closed).
			Int("guided_inactivated", inactivated).
			Msg("Sweep pass complete")
	}

	if err := s.state.SetLastSweptAt(ctx, sweeperJobName, now); err != nil {
		log.Warn().Err(err).Msg("Failed to save sweeper watermark")
	}
}

func (s *Sweeper) closeIdleSessions(ctx context.Context, now time.Time) int {
	idle, err := s.sessions.ListIdleActive(ctx, now.Add(-s.idleTimeout))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list idle sessions")
		return 0
	}

	closed := 0
	for i := range idle {
		if err := s.sessions.Close(ctx, idle[i].ID, now); err != nil {
			log.Warn().Err(err).Int64("session_id", idle[i].ID).Msg("Failed to close idle session")
			continue
		}
		closed++
	}
	return closed
}

func (s *Sweeper) inactivateExpiredGuided(ctx context.Context, now time.Time) int {
	expired, err := s.guided.ListExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired guided sessions")
		return 0
	}

	inactivated := 0
	for i := range expired {
		if err := s.guided.Inactivate(ctx, expired[i].ID, now); err != nil {
			// Lost races are fine: the attempt completed or its session
			// closed between list and transition.
			log.Debug().Err(err).Int64("guided_session_id", expired[i].ID).Msg("Skipped guided session transition")
			continue
		}
		inactivated++
	}
	return inactivated
}
