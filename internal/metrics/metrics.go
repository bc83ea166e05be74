package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for detail requests.
const (
	OutcomeOK      = "ok"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// Metrics groups the collectors updated by the fetchers. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	calendarDuration prometheus.Histogram
	calendarRows     prometheus.Gauge
	calendarErrors   prometheus.Counter
	detailRequests   *prometheus.CounterVec
	detailDropped    prometheus.Counter
	lastSuccessTS    prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.calendarDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ecocal",
		Name:      "calendar_fetch_duration_seconds",
		Help:      "Time spent fetching the calendar table",
		Buckets:   prometheus.DefBuckets,
	})
	m.calendarRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecocal",
		Name:      "calendar_rows",
		Help:      "Rows in the last fetched calendar table",
	})
	m.calendarErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecocal",
		Name:      "calendar_fetch_errors_total",
		Help:      "Failed calendar fetches",
	})
	m.detailRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecocal",
		Name:      "detail_requests_total",
		Help:      "Detail requests by outcome",
	}, []string{"outcome"})
	m.detailDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecocal",
		Name:      "detail_dropped_total",
		Help:      "Identifiers left out by the trailing partial batch",
	})
	m.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ecocal",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful calendar fetch",
	})

	m.registry.MustRegister(
		m.calendarDuration, m.calendarRows, m.calendarErrors,
		m.detailRequests, m.detailDropped, m.lastSuccessTS,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCalendar records a successful calendar fetch.
func (m *Metrics) ObserveCalendar(seconds float64, rows int, unixNow float64) {
	if m == nil {
		return
	}
	m.calendarDuration.Observe(seconds)
	m.calendarRows.Set(float64(rows))
	m.lastSuccessTS.Set(unixNow)
}

// CalendarFailed counts a failed calendar fetch.
func (m *Metrics) CalendarFailed() {
	if m == nil {
		return
	}
	m.calendarErrors.Inc()
}

// DetailRequest counts one detail request by outcome.
func (m *Metrics) DetailRequest(outcome string) {
	if m == nil {
		return
	}
	m.detailRequests.WithLabelValues(outcome).Inc()
}

// DetailsDropped counts identifiers never requested.
func (m *Metrics) DetailsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.detailDropped.Add(float64(n))
}
