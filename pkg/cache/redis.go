package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key the service writes to Redis.
const DefaultNamespace = "data-service"

// RedisStore is a Store backed by Redis. Entries are JSON-encoded and given a
// Redis TTL equal to their remaining lifetime, so Redis drops them on its own;
// reads still check the stored expiry.
type RedisStore struct {
	redis     *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedisStore creates a Redis-backed store whose entries live for ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:     redisClient,
		ttl:       ttl,
		namespace: DefaultNamespace,
	}
}

// key generates the namespaced Redis key.
// Format: data-service:name
func (s *RedisStore) key(name string) string {
	parts := []string{s.namespace}
	if name = strings.Trim(name, ":"); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ":")
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
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

// GetMany reads all keys with a single MGET.
func (s *RedisStore) GetMany(ctx context.Context, keys ...string) (map[string]*Entry, error) {
	result := make(map[string]*Entry, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = s.key(key)
	}

	values, err := s.redis.MGet(ctx, redisKeys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "get").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	now := time.Now()
	for i, raw := range values {
		data, ok := raw.(string)
		if !ok {
			// nil for absent keys
			CacheMisses.WithLabelValues(backendRedis).Inc()
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			CacheErrors.WithLabelValues(backendRedis, "get").Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, keys[i], err)
		}

		if entry.isExpiredAt(now) {
			// Left for the Redis TTL; a DEL here could drop a newer write.
			CacheExpirations.WithLabelValues(backendRedis).Inc()
			CacheMisses.WithLabelValues(backendRedis).Inc()
			continue
		}

		CacheHits.WithLabelValues(backendRedis).Inc()
		result[keys[i]] = &entry
	}

	return result, nil
}

// Set stores value under key and resets its TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMany(ctx, map[string][]byte{key: value})
}

// SetMany stores all values in one MULTI/EXEC transaction with a shared expiry.
func (s *RedisStore) SetMany(ctx context.Context, values map[string][]byte) error {
	now := time.Now()

	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		data, err := json.Marshal(newEntry(value, now, s.ttl))
		if err != nil {
			CacheErrors.WithLabelValues(backendRedis, "set").Inc()
			return fmt.Errorf("marshal cache entry: %w", err)
		}
		encoded[s.key(key)] = data
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range encoded {
			pipe.Set(ctx, key, data, s.ttl)
		}
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues(backendRedis).Set(float64(totalSize(values)))
	return nil
}

// Delete removes a cache entry.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
