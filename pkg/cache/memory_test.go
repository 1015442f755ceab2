package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewMemoryStore_DefaultTTL(t *testing.T) {
	store := NewMemoryStore(0)
	if store.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", store.ttl, DefaultTTL)
	}
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entry.Value) != `{"a":1}` {
		t.Errorf("Value = %s, want {\"a\":1}", entry.Value)
	}
}

func TestMemoryStore_ReturnedValueIsACopy(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	value := []byte(`{"a":1}`)
	if err := store.Set(ctx, "key", value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	entry, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i := range entry.Value {
		entry.Value[i] = 'X'
	}

	again, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(again.Value) != `{"a":1}` {
		t.Errorf("Value = %s, want stored value unaffected by caller writes", again.Value)
	}
}

func TestMemoryStore_Get_CacheMiss(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryStore_LazyExpiration(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(59 * time.Minute)
	if _, err := store.Get(ctx, "key"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	clock.Advance(1 * time.Minute)

	// No sweep: the expired entry is still held until read.
	if store.Len() != 1 {
		t.Errorf("Len() = %d before read, want 1", store.Len())
	}

	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after read, want 0", store.Len())
	}
}

func TestMemoryStore_SetResetsTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(50 * time.Minute)
	if err := store.Set(ctx, "key", []byte("v2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(50 * time.Minute)
	entry, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get after rewrite failed: %v", err)
	}
	if string(entry.Value) != "v2" {
		t.Errorf("Value = %s, want v2", entry.Value)
	}
	if got := entry.ttlAt(clock.Now()); got != 10*time.Minute {
		t.Errorf("remaining TTL = %v, want 10m", got)
	}
}

func TestMemoryStore_SetManyAndGetMany(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	err := store.SetMany(ctx, map[string][]byte{
		"data": []byte(`{"people":[]}`),
		"etag": []byte("abc"),
	})
	if err != nil {
		t.Fatalf("SetMany failed: %v", err)
	}

	entries, err := store.GetMany(ctx, "data", "etag", "missing")
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("GetMany returned %d entries, want 2", len(entries))
	}
	if entries["data"].Expires != entries["etag"].Expires {
		t.Error("SetMany should give all keys the same expiry")
	}

	clock.Advance(time.Hour)
	entries, err = store.GetMany(ctx, "data", "etag")
	if err != nil {
		t.Fatalf("GetMany failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("GetMany after expiry returned %d entries, want 0", len(entries))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete of absent key should succeed, got %v", err)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, "key", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Errorf("Set with cancelled context = %v, want context.Canceled", err)
	}
	if _, err := store.Get(ctx, "key"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get with cancelled context = %v, want context.Canceled", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Ping with cancelled context = %v, want context.Canceled", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := []byte(fmt.Sprintf("v%d", i))
			for j := 0; j < 50; j++ {
				if err := store.SetMany(ctx, map[string][]byte{"a": value, "b": value}); err != nil {
					t.Errorf("SetMany failed: %v", err)
					return
				}
				entries, err := store.GetMany(ctx, "a", "b")
				if err != nil {
					t.Errorf("GetMany failed: %v", err)
					return
				}
				if string(entries["a"].Value) != string(entries["b"].Value) {
					t.Errorf("torn read: a=%s b=%s", entries["a"].Value, entries["b"].Value)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", store.Len())
	}
}
