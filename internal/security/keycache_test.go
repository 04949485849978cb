package security_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veldry/chatvault/internal/security"
)

func TestTenantKeyCache_LoadsOnceUntilExpiry(t *testing.T) {
	var calls atomic.Int64
	loader := func(ctx context.Context, chatID int64) ([]byte, error) {
		calls.Add(1)
		key := make([]byte, security.TenantKeySize)
		key[0] = byte(chatID)
		return key, nil
	}

	cache := security.NewTenantKeyCache(loader, 10*time.Minute, 16)
	ctx := context.Background()

	key1, err := cache.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	key2, err := cache.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if key1[0] != 7 || key2[0] != 7 {
		t.Error("loader key not returned")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 loader call, got %d", calls.Load())
	}
}

func TestTenantKeyCache_ExpiresIndependentOfUse(t *testing.T) {
	var calls atomic.Int64
	loader := func(ctx context.Context, chatID int64) ([]byte, error) {
		calls.Add(1)
		return make([]byte, security.TenantKeySize), nil
	}

	cache := security.NewTenantKeyCache(loader, 50*time.Millisecond, 16)
	ctx := context.Background()

	if _, err := cache.Get(ctx, 1); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	// Keep touching the entry; fixed TTL must expire it anyway.
	deadline := time.Now().Add(120 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := cache.Get(ctx, 1); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if calls.Load() < 2 {
		t.Errorf("expected entry to expire and reload, loader calls = %d", calls.Load())
	}
}

func TestTenantKeyCache_FailedLoadNotCached(t *testing.T) {
	var calls atomic.Int64
	loadErr := errors.New("store outage")
	loader := func(ctx context.Context, chatID int64) ([]byte, error) {
		calls.Add(1)
		return nil, loadErr
	}

	cache := security.NewTenantKeyCache(loader, 10*time.Minute, 16)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cache.Get(ctx, 1); !errors.Is(err, loadErr) {
			t.Fatalf("expected load error, got %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("failed loads must not be cached, loader calls = %d", calls.Load())
	}
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestTenantKeyCache_BoundedSize(t *testing.T) {
	loader := func(ctx context.Context, chatID int64) ([]byte, error) {
		return make([]byte, security.TenantKeySize), nil
	}

	cache := security.NewTenantKeyCache(loader, 10*time.Minute, 4)
	ctx := context.Background()

	for i := int64(0); i < 20; i++ {
		if _, err := cache.Get(ctx, i); err != nil {
			t.Fatalf("get failed: %v", err)
		}
	}
	if cache.Len() > 4 {
		t.Errorf("cache exceeded its bound: %d entries", cache.Len())
	}
}

func TestTenantKeyCache_ConcurrentAccess(t *testing.T) {
	loader := func(ctx context.Context, chatID int64) ([]byte, error) {
		key := make([]byte, security.TenantKeySize)
		key[0] = byte(chatID)
		return key, nil
	}

	cache := security.NewTenantKeyCache(loader, 10*time.Minute, 8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				chatID := int64(i % 12)
				key, err := cache.Get(ctx, chatID)
				if err != nil {
					t.Errorf("get failed: %v", err)
					return
				}
				if key[0] != byte(chatID) {
					t.Errorf("got key for wrong chat: %d vs %d", key[0], chatID)
					return
				}
				if g%3 == 0 {
					cache.Invalidate(chatID)
				}
			}
		}(g)
	}
	wg.Wait()
}
