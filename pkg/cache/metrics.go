package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twitter_reader_cache_hits_total",
		Help: "Total number of profile cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "twitter_reader_cache_misses_total",
		Help: "Total number of profile cache misses",
	})

	// CacheErrors counts failed redis operations by operation (get, set, delete).
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "twitter_reader_cache_errors_total",
		Help: "Total number of profile cache operation errors",
	}, []string{"operation"})
)
