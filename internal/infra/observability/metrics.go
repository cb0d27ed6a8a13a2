package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/valadez/empenos-api/internal/domain"
)

// Metrics holds all Prometheus metrics for the pawnshop API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	loansOriginated prometheus.Counter
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "empenos_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empenos_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empenos_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empenos_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empenos_payments_total",
				Help: "Total payments by intent kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		loansOriginated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "empenos_loans_originated_total",
				Help: "Total loans originated.",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "empenos_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
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

// IncrPayment counts a processed or annulled payment by intent kind.
func (m *Metrics) IncrPayment(kind, outcome string) {
	m.payments.WithLabelValues(kind, outcome).Inc()
}

// IncrLoanOriginated counts a new loan.
func (m *Metrics) IncrLoanOriginated() {
	m.loansOriginated.Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetOpsSnapshot returns the counter values backing GET /v1/metrics/ops.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	processed := float64(0)
	annulled := float64(0)
	for _, kind := range []string{"RENEW", "AMORTIZE", "LIQUIDATE"} {
		processed += getCounterValue(m.payments, kind, "processed")
		annulled += getCounterValue(m.payments, kind, "annulled")
	}

	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "loans")
	cacheMisses := getCounterValue(m.cacheMisses, "loans")

	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	loans := &dto.Metric{}
	loansTotal := float64(0)
	if err := m.loansOriginated.Write(loans); err == nil && loans.Counter != nil && loans.Counter.Value != nil {
		loansTotal = *loans.Counter.Value
	}

	return &domain.OpsMetrics{
		PaymentsProcessed: int64(processed),
		PaymentsAnnulled:  int64(annulled),
		LoansOriginated:   int64(loansTotal),
		ErrorRate:         errorRate,
		CacheHitRate:      cacheHitRate,
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
