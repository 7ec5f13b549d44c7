package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	DocumentsIngested prometheus.Counter
	PagesIndexed      prometheus.Counter
	IngestFailures    prometheus.Counter
	SearchesServed    prometheus.Counter
	OrphansRemoved    prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers the instruments on the registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesift_documents_ingested_total",
			Help: "Documents fully ingested without error.",
		}),
		PagesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesift_pages_indexed_total",
			Help: "Pages committed to the index, including pages of partially failed documents.",
		}),
		IngestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesift_ingest_failures_total",
			Help: "Ingestion requests that ended in an error.",
		}),
		SearchesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesift_searches_total",
			Help: "Search queries served.",
		}),
		OrphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagesift_orphans_removed_total",
			Help: "Documents removed from the index because their asset vanished.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagesift_http_request_duration_seconds",
			Help:    "HTTP request duration by method, route and status.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 10, 60},
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.DocumentsIngested,
		m.PagesIndexed,
		m.IngestFailures,
		m.SearchesServed,
		m.OrphansRemoved,
		m.RequestDuration,
	)

	return m
}
