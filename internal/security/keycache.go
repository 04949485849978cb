package security

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// KeyLoader resolves a chat id to its unwrapped key, typically by fetching
// the chat row and unwrapping through the KeyVault.
type KeyLoader func(ctx context.Context, chatID int64) ([]byte, error)

type cacheEntry struct {
	key       []byte
	expiresAt time.Time
}

// TenantKeyCache is a bounded, fixed-TTL cache of unwrapped per-chat keys.
// Entries expire a fixed interval after insertion regardless of use, forcing
// periodic re-validation against the vault. Safe for concurrent use; failed
// loads are never cached.
type TenantKeyCache struct {
	loader     KeyLoader
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[int64]cacheEntry
}

// NewTenantKeyCache creates a key cache over the given loader.
func NewTenantKeyCache(loader KeyLoader, ttl time.Duration, maxEntries int) *TenantKeyCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &TenantKeyCache{
		loader:     loader,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[int64]cacheEntry),
	}
}

// Get returns the unwrapped key for the chat, consulting the loader on a
// miss or expired entry. Every successful load populates the cache.
func (c *TenantKeyCache) Get(ctx context.Context, chatID int64) ([]byte, error) {
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.entries[chatID]; ok && now.Before(entry.expiresAt) {
		key := entry.key
		c.mu.Unlock()
		return key, nil
	}
	c.mu.Unlock()

	// Load outside the lock: unwrapping may hit the database.
	key, err := c.loader(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load key for chat %d: %w", chatID, err)
	}

	c.mu.Lock()
	c.evictLocked(now)
	c.entries[chatID] = cacheEntry{key: key, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return key, nil
}

// Invalidate drops the cached key for a chat.
func (c *TenantKeyCache) Invalidate(chatID int64) {
	c.mu.Lock()
	delete(c.entries, chatID)
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired or not.
func (c *TenantKeyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries, then the soonest-to-expire entries
// until there is room for one more. Caller holds c.mu.
func (c *TenantKeyCache) evictLocked(now time.Time) {
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
	for len(c.entries) >= c.maxEntries {
		var oldestID int64
		var oldest time.Time
		first := true
		for id, entry := range c.entries {
			if first || entry.expiresAt.Before(oldest) {
				oldestID, oldest = id, entry.expiresAt
				first = false
			}
		}
		delete(c.entries, oldestID)
	}
}
