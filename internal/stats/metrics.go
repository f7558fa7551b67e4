package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the dashboard aggregator.
//
// Metrics:
//   - dompet_stats_cache_hits_total - snapshots served from the cache
//   - dompet_stats_cache_misses_total - lookups that went to the row store
//   - dompet_stats_fetch_errors_total{reason} - failed recomputations
//   - dompet_stats_fetch_duration_seconds - time spent on the four queries
type Metrics struct {
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	FetchErrorsTotal *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
}

// NewMetrics creates the aggregator metrics and registers them on reg. A nil reg
// leaves them unregistered, which keeps tests free of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dompet_stats_cache_hits_total",
			Help: "Dashboard snapshots served from the cache",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dompet_stats_cache_misses_total",
			Help: "Dashboard lookups that queried the row store",
		}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dompet_stats_fetch_errors_total",
			Help: "Failed dashboard recomputations",
		}, []string{"reason"}), // "backend" or "canceled"
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dompet_stats_fetch_duration_seconds",
			Help:    "Duration of the dashboard row-store queries",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheHitsTotal, m.CacheMissesTotal, m.FetchErrorsTotal, m.FetchDuration)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.CacheHitsTotal.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) fetchError(reason string) {
	if m != nil {
		m.FetchErrorsTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) observe(seconds float64) {
	if m != nil {
		m.FetchDuration.Observe(seconds)
	}
}
