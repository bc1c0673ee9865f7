// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roadbook_searches_total",
		Help: "Booking searches by outcome (found, not_found, error).",
	}, []string{"outcome"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadbook_cache_hits_total",
		Help: "Booking lookups served from the response cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roadbook_cache_misses_total",
		Help: "Booking lookups that fell through to the resolver.",
	})

	AttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roadbook_tenant_attempt_seconds",
		Help:    "Per-tenant probe duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"microsite", "outcome"})
)
