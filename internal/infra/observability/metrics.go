package observability

import (
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	memberFetchFailures prometheus.Counter
	reportsTotal        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leaderforge_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderforge_external_errors_total",
				Help: "Total errors from the document store and content API.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderforge_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderforge_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		memberFetchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "leaderforge_member_fetch_failures_total",
				Help: "Team members whose activity could not be read while building a report.",
			},
		),
		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leaderforge_reports_total",
				Help: "Company progress reports generated, by outcome.",
			},
			[]string{"status"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrMemberFetchFailure counts one member degraded to empty data.
func (m *Metrics) IncrMemberFetchFailure() {
	m.memberFetchFailures.Inc()
}

// IncrReport increments the report counter with a status label.
func (m *Metrics) IncrReport(status string) {
	m.reportsTotal.WithLabelValues(status).Inc()
}

// Snapshot returns the dashboard counters for GET /v1/metrics/dashboard.
func (m *Metrics) Snapshot() *domain.DashboardMetrics {
	hits := counterValue(m.cacheHits.WithLabelValues("weekly_metrics"))
	misses := counterValue(m.cacheMisses.WithLabelValues("weekly_metrics"))

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.DashboardMetrics{
		ReportsGenerated:    int64(counterValue(m.reportsTotal.WithLabelValues("success"))),
		ReportErrors:        int64(counterValue(m.reportsTotal.WithLabelValues("error"))),
		MemberFetchFailures: int64(counterValue(m.memberFetchFailures)),
		CacheHitRate:        hitRate,
		Period:              "since_start",
	}
}

// counterValue extracts the current float64 value of a counter.
func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
