// Package metrics exposes Prometheus counters/histograms for statement
// execution and cache behavior, backed by prometheus/client_golang the way
// eframework-org-GO.CRUD instruments its own request layer. Nothing in
// this module forces an HTTP exporter on the caller; Registry just holds
// the collectors so an embedding application can register them with its
// own promhttp handler.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors this module maintains.
type Registry struct {
	StatementDuration *prometheus.HistogramVec
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	Executions        *prometheus.CounterVec
}

// NewRegistry builds a fresh set of collectors and registers them against
// reg (pass prometheus.NewRegistry() for isolation in tests, or
// prometheus.DefaultRegisterer in production).
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		StatementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mybatis3",
			Name:      "statement_duration_seconds",
			Help:      "Duration of mapped statement execution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"statement_id", "type"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mybatis3",
			Name:      "cache_hits_total",
			Help:      "Number of L1/L2 cache hits.",
		}, []string{"cache_id", "tier"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mybatis3",
			Name:      "cache_misses_total",
			Help:      "Number of L1/L2 cache misses.",
		}, []string{"cache_id", "tier"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mybatis3",
			Name:      "statement_executions_total",
			Help:      "Number of mapped statement executions by outcome.",
		}, []string{"statement_id", "outcome"}),
	}
	reg.MustRegister(r.StatementDuration, r.CacheHits, r.CacheMisses, r.Executions)
	return r
}
