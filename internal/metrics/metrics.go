package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	entriesCreated    *prometheus.CounterVec
	entriesDeleted    *prometheus.CounterVec
	summaryDuration   *prometheus.HistogramVec
	publishErrors     prometheus.Counter
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		entriesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_entries_created_total",
			Help: "Ledger entries appended, by target kind.",
		}, []string{"target_kind"}),
		entriesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_entries_deleted_total",
			Help: "Ledger entries removed, by target kind.",
		}, []string{"target_kind"}),
		summaryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "summary_compute_duration_seconds",
			Help:    "Time to read and compute a summary, by scope.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_event_publish_errors_total",
			Help: "Ledger events that could not be published.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.entriesCreated,
		m.entriesDeleted,
		m.summaryDuration,
		m.publishErrors,
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) EntryCreated(targetKind string) {
	if m == nil {
		return
	}
	m.entriesCreated.WithLabelValues(targetKind).Inc()
}

func (m *Metrics) EntryDeleted(targetKind string) {
	if m == nil {
		return
	}
	m.entriesDeleted.WithLabelValues(targetKind).Inc()
}

// ObserveSummary records the time since start under scope ("building" or "portfolio")
func (m *Metrics) ObserveSummary(scope string, start time.Time) {
	if m == nil {
		return
	}
	m.summaryDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())
}

func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}
