package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltransfer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soltransfer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltransfer_rate_limited_total",
			Help: "Requests refused by the per-client rate limiter",
		},
		[]string{"endpoint"},
	)

	// Transfer metrics
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltransfer_transfers_total",
			Help: "Total number of transfer attempts",
		},
		[]string{"status"}, // success, rejected, internal_failure
	)

	TransferAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soltransfer_transfer_amount_lamports",
			Help:    "Requested transfer amount distribution",
			Buckets: prometheus.ExponentialBuckets(1000, 10, 8), // 1e3 .. 1e10 lamports
		},
		[]string{"status"},
	)

	TransferProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soltransfer_transfer_processing_duration_seconds",
			Help:    "Time from balance check to confirmed submission",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Ledger node metrics
	LedgerCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soltransfer_ledger_call_duration_seconds",
			Help:    "Duration of calls made to the ledger node",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "status"},
	)

	// Worker pool metrics
	BlockingJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soltransfer_blocking_jobs_in_flight",
			Help: "Ledger jobs currently holding a worker slot",
		},
	)

	BlockingJobsPanicked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soltransfer_blocking_jobs_panicked_total",
			Help: "Ledger jobs that panicked and were recovered",
		},
	)

	// Event notification metrics
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soltransfer_events_published_total",
			Help: "Transfer events published to NATS",
		},
		[]string{"type", "result"},
	)
)
