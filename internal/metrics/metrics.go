package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptsearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptsearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptsearch",
		Name:      "upstream_requests_total",
		Help:      "Total calls to upstream services by upstream, operation and result status.",
	}, []string{"upstream", "operation", "status"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptsearch",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream call duration in seconds, retries included.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
	}, []string{"upstream", "operation"})

	UpstreamAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "promptsearch",
		Name:      "upstream_available",
		Help:      "Whether an upstream is available (1) or blocked after repeated failures (0).",
	}, []string{"upstream"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "promptsearch",
		Name:      "cache_hits_total",
		Help:      "Total number of prompt response cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "promptsearch",
		Name:      "cache_misses_total",
		Help:      "Total number of prompt response cache misses.",
	})

	PoolSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptsearch",
		Name:      "pool_items",
		Help:      "Items contributed to the candidate pool per strategy and request.",
		Buckets:   []float64{0, 5, 10, 20, 40, 80, 160, 320},
	}, []string{"strategy"})

	AIFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptsearch",
		Name:      "ai_fallback_total",
		Help:      "Prompt searches served from the parsed intent after a completion failure, by reason.",
	}, []string{"reason"})

	PromptSearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptsearch",
		Name:      "prompt_searches_total",
		Help:      "Prompt searches served, by strategy and whether the response came from cache.",
	}, []string{"strategy", "cached"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		UpstreamAvailable,
		CacheHitsTotal,
		CacheMissesTotal,
		PoolSize,
		AIFallbackTotal,
		PromptSearchesTotal,
	)
}
