package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter the pipeline emits. The registry is injected
// so tests and embedders can isolate their own.
type Metrics struct {
	Registry *prometheus.Registry

	APICalls                  prometheus.Counter
	APIFailures               prometheus.Counter
	RetryAttempts             prometheus.Counter
	CacheHits                 prometheus.Counter
	CacheMisses               prometheus.Counter
	StructuredStorageFailures prometheus.Counter
	CompletionMerges          prometheus.Counter
	RetentionSweeps           prometheus.Counter

	SearchDuration prometheus.Histogram
}

// New registers the pipeline collectors on reg. Passing nil creates a
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	ns := "flightcache"

	return &Metrics{
		Registry: reg,
		APICalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "api_calls_total",
			Help:      "Provider requests attempted.",
		}),
		APIFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "api_failures_total",
			Help:      "Provider requests that ended in an error.",
		}),
		RetryAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "retry_attempts_total",
			Help:      "Transient provider failures that were retried.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_hits_total",
			Help:      "Searches answered from the local store.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_misses_total",
			Help:      "Searches that had to call the provider.",
		}),
		StructuredStorageFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "structured_storage_failures_total",
			Help:      "Structured writes that failed after the raw record was stored.",
		}),
		CompletionMerges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "completion_merges_total",
			Help:      "Round-trip responses repaired with a supplementary inbound fetch.",
		}),
		RetentionSweeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "retention_sweeps_total",
			Help:      "Opportunistic retention sweeps that actually ran.",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "search_duration_seconds",
			Help:      "End-to-end pipeline latency per search.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
