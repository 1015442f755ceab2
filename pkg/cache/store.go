package cache

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultTTL is how long an entry lives after it was last written.
	DefaultTTL = 1 * time.Hour
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a key/value store with a fixed per-entry TTL.
//
// Writes reset the TTL of the written keys. Reads of expired keys behave
// like reads of absent keys.
type Store interface {
	// Get returns the entry for key, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)

	// GetMany returns the live entries for keys in one consistent read.
	// Absent and expired keys are omitted from the result.
	GetMany(ctx context.Context, keys ...string) (map[string]*Entry, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error

	// SetMany stores all values atomically with one shared expiry.
	SetMany(ctx context.Context, values map[string][]byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
