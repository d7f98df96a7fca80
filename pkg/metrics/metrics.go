// Package metrics provides the Prometheus registry and HTTP handler for the
// Twitter reader. All metrics are defined in their respective packages
// (client, pagination, ratelimit, retry, cache) and registered via promauto.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "twitter_reader"

// Registry is the default Prometheus registry used by the reader.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names returns the names of all reader metrics that currently have samples.
// Vectors appear once a label combination has been used.
func Names() ([]string, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Namespace+"_") {
			names = append(names, mf.GetName())
		}
	}
	return names, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/pagination):
//   - twitter_reader_requests_total{resource, status} (Counter): API requests by resource and HTTP status
//   - twitter_reader_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - twitter_reader_page_items_total{resource} (Counter): Items received in pages
//
// Quota Metrics (pkg/ratelimit):
//   - twitter_reader_quota_remaining{resource} (Gauge): Last observed remaining requests
//   - twitter_reader_quota_waits_total{resource} (Counter): Waits for a quota window reset
//   - twitter_reader_quota_wait_seconds{resource} (Histogram): Length of those waits
//   - twitter_reader_quota_status_queries_total{family} (Counter): rate_limit_status queries
//   - twitter_reader_quota_rejections_total{resource} (Counter): 429 responses absorbed
//
// Connection Metrics (pkg/client):
//   - twitter_reader_connections_total{kind} (Counter): Transports opened by connect or reconnect
//
// Retry Metrics (pkg/retry):
//   - twitter_reader_retries_total{operation} (Counter): Retry attempts
//   - twitter_reader_retry_backoff_seconds{operation} (Histogram): Backoff before each retry
//   - twitter_reader_retry_exhausted_total{operation} (Counter): Operations that ran out of attempts
//
// Cache Metrics (pkg/cache):
//   - twitter_reader_cache_hits_total (Counter): Profile cache hits
//   - twitter_reader_cache_misses_total (Counter): Profile cache misses
//   - twitter_reader_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Time spent waiting for quota
//   sum by (resource) (rate(twitter_reader_quota_wait_seconds_sum[1h]))
//
//   # Subject errors (suspended, protected, not found)
//   sum by (status) (rate(twitter_reader_requests_total{status=~"401|403|404"}[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(twitter_reader_request_duration_seconds_bucket[5m]))
//
//   # Profile Cache Hit Rate
//   sum(rate(twitter_reader_cache_hits_total[5m])) /
//   (sum(rate(twitter_reader_cache_hits_total[5m])) + sum(rate(twitter_reader_cache_misses_total[5m])))
