// Package snapshot keeps the served dataset and its ETag in a cache.Store.
//
// The dataset and its hash live under two keys, cachedData and
// cachedDataETag. They are always written together so the stored ETag is the
// hash of the stored data.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/data-service/pkg/cache"
	"github.com/Sternrassler/data-service/pkg/dataset"
)

// Cache keys of the snapshot pair.
const (
	KeyData = "cachedData"
	KeyETag = "cachedDataETag"
)

// ErrEmpty indicates there is no live snapshot (never set or expired).
var ErrEmpty = errors.New("cache empty")

var snapshotReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "data_snapshot_replacements_total",
	Help: "Total number of snapshot replacements by source",
}, []string{"source"}) // "seed", "put"

// Snapshot is the stored dataset together with its ETag.
type Snapshot struct {
	// Data is the canonical JSON of the dataset
	Data []byte

	// ETag is the hex SHA-1 of Data
	ETag string
}

// Manager reads and replaces the snapshot in a cache.Store.
type Manager struct {
	store  cache.Store
	logger zerolog.Logger
}

// NewManager creates a snapshot manager on top of store.
func NewManager(store cache.Store, logger zerolog.Logger) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:  store,
		logger: logger,
	}
}

// Load returns the current snapshot, or ErrEmpty when either key is absent.
func (m *Manager) Load(ctx context.Context) (*Snapshot, error) {
	entries, err := m.store.GetMany(ctx, KeyETag, KeyData)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	etag, ok := entries[KeyETag]
	if !ok {
		return nil, ErrEmpty
	}
	data, ok := entries[KeyData]
	if !ok {
		m.logger.Warn().Msg("Snapshot ETag present without data, treating cache as empty")
		return nil, ErrEmpty
	}

	return &Snapshot{
		Data: data.Value,
		ETag: string(etag.Value),
	}, nil
}

// Replace canonicalizes raw, hashes it and overwrites both snapshot keys.
// Empty, malformed or JSON-falsy input returns dataset.ErrInvalidData and
// leaves the stored snapshot untouched.
func (m *Manager) Replace(ctx context.Context, raw []byte) (*Snapshot, error) {
	canonical, err := dataset.Canonicalize(raw)
	if err != nil {
		return nil, err
	}
	return m.save(ctx, canonical, "put")
}

// Seed stores a typed dataset as the snapshot.
func (m *Manager) Seed(ctx context.Context, ds dataset.Dataset) (*Snapshot, error) {
	canonical, err := dataset.Marshal(ds)
	if err != nil {
		return nil, err
	}
	return m.save(ctx, canonical, "seed")
}

func (m *Manager) save(ctx context.Context, canonical []byte, source string) (*Snapshot, error) {
	snap := &Snapshot{
		Data: canonical,
		ETag: dataset.Hash(canonical),
	}

	err := m.store.SetMany(ctx, map[string][]byte{
		KeyData: snap.Data,
		KeyETag: []byte(snap.ETag),
	})
	if err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	snapshotReplacements.WithLabelValues(source).Inc()
	m.logger.Info().
		Str("source", source).
		Str("etag", snap.ETag).
		Str("size", humanize.Bytes(uint64(len(snap.Data)))).
		Msg("Snapshot replaced")

	return snap, nil
}
