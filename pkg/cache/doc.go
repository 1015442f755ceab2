// Package cache provides the key/value store backing the data service
// snapshot, with two interchangeable backends.
//
// Both backends implement Store:
//
// - MemoryStore keeps entries in a process-local map (lost on restart)
// - RedisStore keeps entries in Redis with a matching Redis TTL
//
// Entries expire a fixed TTL after they were last written. There is no
// background sweep: MemoryStore removes an expired entry when a read finds
// it, RedisStore skips it and leaves removal to the Redis TTL.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(time.Hour)
//
//	if err := store.Set(ctx, "greeting", []byte(`"hello"`)); err != nil {
//		return err
//	}
//
//	entry, err := store.Get(ctx, "greeting")
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// absent or expired
//	}
//
// # Atomic Pairs
//
// SetMany writes several keys with one shared expiry. MemoryStore does this
// under a single lock, RedisStore in a single MULTI/EXEC transaction, so a
// reader using GetMany never observes half of an update.
//
//	err := store.SetMany(ctx, map[string][]byte{
//		"cachedData":     data,
//		"cachedDataETag": []byte(etag),
//	})
//
// # Conditional Requests
//
//	if cache.MatchesETag(r, etag) {
//		w.WriteHeader(http.StatusNotModified)
//		return
//	}
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - data_cache_hits_total{backend} - Cache hits
//   - data_cache_misses_total{backend} - Cache misses (absent or expired)
//   - data_cache_expirations_total{backend} - Entries found expired on read
//   - data_cache_size_bytes{backend} - Bytes written by the last SetMany/Set
//   - data_cache_errors_total{backend, operation} - Backend operation errors
//   - data_not_modified_responses_total - 304 Not Modified responses served
package cache
