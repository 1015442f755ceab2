package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source used for expiry (for testing).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory store whose entries live for ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	entries, err := s.GetMany(ctx, key)
	if err != nil {
		return nil, err
	}
	entry, ok := entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return entry, nil
}

// GetMany reads all keys under one lock. Returned entries are copies, so
// callers may modify them freely.
func (s *MemoryStore) GetMany(ctx context.Context, keys ...string) (map[string]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	result := make(map[string]*Entry, len(keys))
	var expired []string

	s.mu.RLock()
	for _, key := range keys {
		entry, ok := s.entries[key]
		if !ok {
			CacheMisses.WithLabelValues(backendMemory).Inc()
			continue
		}
		if entry.isExpiredAt(now) {
			expired = append(expired, key)
			CacheMisses.WithLabelValues(backendMemory).Inc()
			continue
		}
		CacheHits.WithLabelValues(backendMemory).Inc()
		result[key] = entry.clone()
	}
	s.mu.RUnlock()

	if len(expired) > 0 {
		s.removeExpired(expired, now)
	}

	return result, nil
}

// removeExpired deletes keys that are still expired at now. A key rewritten
// since the read lock was released is left alone.
func (s *MemoryStore) removeExpired(keys []string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if entry, ok := s.entries[key]; ok && entry.isExpiredAt(now) {
			delete(s.entries, key)
			CacheExpirations.WithLabelValues(backendMemory).Inc()
		}
	}
}

// Set stores value under key and resets its TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany stores all values under one lock with a shared expiry.
func (s *MemoryStore) SetMany(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		CacheErrors.WithLabelValues(backendMemory, "set").Inc()
		return err
	}

	now := s.now()

	s.mu.Lock()
	for key, value := range values {
		s.entries[key] = newEntry(value, now, s.ttl)
	}
	s.mu.Unlock()

	CacheSize.WithLabelValues(backendMemory).Set(float64(totalSize(values)))
	return nil
}

// Delete removes a cache entry.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		CacheErrors.WithLabelValues(backendMemory, "delete").Inc()
		return err
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired entries that
// have not been read since they expired.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.mu.Unlock()
	return nil
}
