// Package metrics exposes the Prometheus registry used by the data service.
// All metrics are defined in their respective packages (cache, snapshot,
// server, client) to maintain modularity and avoid circular dependencies.
//
// This package provides the /metrics handler and documentation for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the data service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - data_cache_hits_total{backend} (Counter): Cache hits by backend (memory, redis)
//   - data_cache_misses_total{backend} (Counter): Cache misses, absent or expired
//   - data_cache_expirations_total{backend} (Counter): Entries found expired on read
//   - data_cache_size_bytes{backend} (Gauge): Bytes written by the most recent write
//   - data_cache_errors_total{backend, operation} (Counter): Backend operation errors
//   - data_not_modified_responses_total (Counter): 304 Not Modified responses served
//
// Snapshot Metrics (pkg/snapshot):
//   - data_snapshot_replacements_total{source} (Counter): Snapshot writes by source (seed, put)
//
// HTTP Metrics (pkg/server):
//   - data_http_requests_total{route, status} (Counter): Requests by route pattern and status
//   - data_http_request_duration_seconds{route} (Histogram): Request duration by route pattern
//
// Client Metrics (pkg/client):
//   - data_client_requests_total{route, status} (Counter): Client requests by route and status
//   - data_client_request_duration_seconds{route} (Histogram): Client request duration incl. retries
//   - data_client_errors_total{class} (Counter): Client errors by class (client, server, network)
//   - data_client_retries_total{error_class} (Counter): Retry attempts by error class
//   - data_client_retry_backoff_seconds{error_class} (Histogram): Backoff waited before a retry
//   - data_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//   - data_client_cache_hits_total (Counter): GET /data answered 304 and served from the client cache
//
// Example Prometheus Queries:
//
//   # Conditional GET effectiveness
//   rate(data_not_modified_responses_total[5m]) /
//   sum(rate(data_http_requests_total{route="GET /data"}[5m]))
//
//   # Cache Hit Rate
//   sum(rate(data_cache_hits_total[5m])) /
//   (sum(rate(data_cache_hits_total[5m])) + sum(rate(data_cache_misses_total[5m])))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(data_http_request_duration_seconds_bucket[5m]))
