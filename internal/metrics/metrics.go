package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session outcome label values
const (
	SessionCommitted    = "committed"
	SessionRolledBack   = "rolled_back"
	SessionCommitFailed = "commit_failed"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SessionsTotal       *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a dedicated registry. dbStats may be nil.
func New(dbStats func() sql.DBStats) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_sessions_total",
				Help: "Request-scoped database sessions by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SessionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if dbStats != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "db_pool_open_connections",
				Help: "Open connections in the database pool",
			}, func() float64 { return float64(dbStats().OpenConnections) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "db_pool_in_use_connections",
				Help: "Connections currently checked out by sessions",
			}, func() float64 { return float64(dbStats().InUse) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "db_pool_idle_connections",
				Help: "Idle connections in the database pool",
			}, func() float64 { return float64(dbStats().Idle) }),
		)
	}

	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSession counts one finished session. A nil receiver is a no-op.
func (m *Metrics) ObserveSession(outcome string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(outcome).Inc()
}
