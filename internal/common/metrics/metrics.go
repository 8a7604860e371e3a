// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PromptRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedge_prompt_requests_total",
			Help: "Total number of hedge prompt requests by intent",
		},
		[]string{"intent"},
	)

	PromptErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedge_prompt_errors_total",
			Help: "Total number of failed hedge prompt requests by error code",
		},
		[]string{"error_code"},
	)

	PromptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "hedge_prompt_duration_seconds",
			Help: "Duration of hedge prompt processing in seconds",
		},
		[]string{"intent"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hedge_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hedge_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	StoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedge_store_queries_total",
			Help: "Total number of row store queries by table and operation",
		},
		[]string{"table", "operation"},
	)
)
