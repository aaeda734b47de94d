package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/go-scrape-bursaries/models"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RecordsTotal     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	FieldsTotal      *prometheus.CounterVec
	StrategyHitTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bursary_scraper_requests_total",
			Help: "Total HTTP requests issued, by phase (listing or detail).",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bursary_scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bursary_scraper_records_total",
			Help: "Total number of bursary records produced.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bursary_scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	fields := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bursary_scraper_fields_total",
			Help: "Extracted date fields by field name and value kind.",
		},
		[]string{"field", "kind"},
	)
	strategies := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bursary_scraper_strategy_hits_total",
			Help: "Detail pages resolved by each extraction strategy.",
		},
		[]string{"strategy"},
	)

	registry.MustRegister(requests, requestDuration, records, errorsTotal, fields, strategies)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		RecordsTotal:     records,
		ErrorsTotal:      errorsTotal,
		FieldsTotal:      fields,
		StrategyHitTotal: strategies,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveRecord counts a finished record by field kind and winning strategy.
func (m *Metrics) ObserveRecord(r *models.BursaryRecord) {
	if m == nil || r == nil {
		return
	}
	m.RecordsTotal.Inc()
	m.FieldsTotal.WithLabelValues("closing_date", r.ClosingDate.Kind().Label()).Inc()
	m.FieldsTotal.WithLabelValues("last_updated", r.LastUpdated.Kind().Label()).Inc()
	strategy := r.Strategy
	if strategy == "" {
		strategy = "none"
	}
	m.StrategyHitTotal.WithLabelValues(strategy).Inc()
}
