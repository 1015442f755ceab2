package cache

import (
	"bytes"
	"time"
)

// Entry is a cached value with its expiry.
type Entry struct {
	// Value is the stored payload
	Value []byte `json:"value"`

	// Expires is when the entry becomes absent
	Expires time.Time `json:"expires"`

	// CachedAt is when the value was written
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return e.isExpiredAt(time.Now())
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	return e.ttlAt(time.Now())
}

func (e *Entry) isExpiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

func (e *Entry) ttlAt(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// clone returns a copy whose Value does not share memory with e.
func (e *Entry) clone() *Entry {
	c := *e
	c.Value = bytes.Clone(e.Value)
	return &c
}

// newEntry builds an entry written at now that lives for ttl.
func newEntry(value []byte, now time.Time, ttl time.Duration) *Entry {
	return &Entry{
		Value:    bytes.Clone(value),
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}
