package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const leasePrefix = "lease:"

// JobLease provides a cross-instance lease for recurring jobs, so that in a
// multi-instance deployment at most one process runs a given job per TTL
// window. Within one process the in-memory lock registry is authoritative;
// the lease only fences other instances.
type JobLease struct {
	client *Client
	owner  string
}

// NewJobLease creates a job lease keyed by a per-process owner token.
func NewJobLease(client *Client, owner string) *JobLease {
	return &JobLease{client: client, owner: owner}
}

// Acquire attempts to take the named lease for ttl. Returns false when
// another instance holds it.
func (l *JobLease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, leasePrefix+name, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %q: %w", name, err)
	}
	return ok, nil
}

// Release drops the lease if this process still owns it. Releasing a lease
// another instance has since taken over is a no-op.
func (l *JobLease) Release(ctx context.Context, name string) error {
	// Compare-and-delete so an expired lease reacquired elsewhere survives.
	script := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`)
	if err := script.Run(ctx, l.client.rdb, []string{leasePrefix + name}, l.owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lease %q: %w", name, err)
	}
	return nil
}
