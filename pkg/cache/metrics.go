package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_cache_hits_total",
			Help: "Total number of data cache hits",
		},
		[]string{"backend"}, // "memory", "redis"
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_cache_misses_total",
			Help: "Total number of data cache misses",
		},
		[]string{"backend"},
	)

	// CacheExpirations tracks entries that were found expired on read
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_cache_expirations_total",
			Help: "Total number of data cache entries found expired on read",
		},
		[]string{"backend"},
	)

	// CacheSize tracks the bytes written by the most recent write
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "data_cache_size_bytes",
			Help: "Size in bytes of the most recent data cache write",
		},
		[]string{"backend"},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "data_not_modified_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "set", "delete"
	)
)

func totalSize(values map[string][]byte) int {
	n := 0
	for _, v := range values {
		n += len(v)
	}
	return n
}
