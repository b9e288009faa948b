package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	QueryDuration   *prometheus.HistogramVec
	QueryErrors     *prometheus.CounterVec
	ConnsOpened     prometheus.Counter
	ConnErrors      prometheus.Counter
	RecordsCreated  *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tutoring",
			Name:      "query_duration_seconds",
			Help:      "Duration of SQL statements by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Name:      "query_errors_total",
			Help:      "Failed operations by operation and error kind.",
		}, []string{"op", "kind"}),
		ConnsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutoring",
			Name:      "db_connections_opened_total",
			Help:      "Database connections acquired.",
		}),
		ConnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tutoring",
			Name:      "db_connection_errors_total",
			Help:      "Failed database connection attempts.",
		}),
		RecordsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Name:      "records_created_total",
			Help:      "Inserted records by entity.",
		}, []string{"entity"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Name:      "events_published_total",
			Help:      "Record events published by result.",
		}, []string{"result"}),
		EventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Name:      "events_consumed_total",
			Help:      "Record events consumed by entity.",
		}, []string{"entity"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QueryDuration,
		m.QueryErrors,
		m.ConnsOpened,
		m.ConnErrors,
		m.RecordsCreated,
		m.EventsPublished,
		m.EventsConsumed,
	)
	return m
}

// The helpers below accept a nil receiver so callers may run without metrics.

// ObserveQuery records the duration of op since start.
func (m *Metrics) ObserveQuery(op string, start time.Time) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// QueryFailed counts a failed operation.
func (m *Metrics) QueryFailed(op, kind string) {
	if m == nil {
		return
	}
	m.QueryErrors.WithLabelValues(op, kind).Inc()
}

// ConnOpened counts an acquired connection, or a failed attempt when err is non-nil.
func (m *Metrics) ConnOpened(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ConnErrors.Inc()
		return
	}
	m.ConnsOpened.Inc()
}

// RecordCreated counts an inserted entity row.
func (m *Metrics) RecordCreated(entity string) {
	if m == nil {
		return
	}
	m.RecordsCreated.WithLabelValues(entity).Inc()
}

// EventPublished counts a publish attempt.
func (m *Metrics) EventPublished(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}

// EventConsumed counts a consumed event.
func (m *Metrics) EventConsumed(entity string) {
	if m == nil {
		return
	}
	m.EventsConsumed.WithLabelValues(entity).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
