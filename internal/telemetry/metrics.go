package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_api_requests_total",
		Help: "Total HTTP API requests",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration tracks HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bragi_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bragi_api_active_connections",
		Help: "Currently active HTTP connections",
	})

	// AssignmentRunsTotal counts assignment runs by outcome.
	AssignmentRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_assignment_runs_total",
		Help: "Total slot assignment runs",
	}, []string{"outcome"})

	// AssignmentDuration tracks end-to-end assignment run latency.
	AssignmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bragi_assignment_duration_seconds",
		Help:    "Slot assignment run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// AssignmentStarvedSlots counts slots left unassigned across runs.
	AssignmentStarvedSlots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bragi_assignment_starved_slots_total",
		Help: "Total starved slots across assignment runs",
	})

	// AssignmentCandidates observes eligible candidate pool sizes per run.
	AssignmentCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bragi_assignment_candidates",
		Help:    "Eligible candidate pool size per assignment run",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	})

	// SequenceOperationsTotal counts save/load/delete operations by outcome.
	SequenceOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_sequence_operations_total",
		Help: "Total saved-sequence operations",
	}, []string{"operation", "outcome"})

	// DatabaseQueryDuration tracks GORM operation latency by table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bragi_db_query_duration_seconds",
		Help:    "Database query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts database errors by operation.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bragi_db_errors_total",
		Help: "Total database errors",
	}, []string{"operation", "kind"})

	// DatabaseConnectionsActive gauges open database connections.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bragi_db_connections_active",
		Help: "Open database connections",
	})

	// CatalogSnapshotSize observes catalog snapshot sizes.
	CatalogSnapshotSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bragi_catalog_snapshot_size",
		Help:    "Track count per catalog snapshot",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
