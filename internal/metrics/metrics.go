package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion Metrics
	DocumentsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_documents_stored_total",
			Help: "Total number of session documents written to the raid store",
		},
		[]string{"kind"}, // "start", "end", "connect_event"
	)

	DocumentsIgnored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_documents_ignored_total",
			Help: "Total number of session documents dropped for ignored nicknames",
		},
		[]string{"kind"},
	)

	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raid_storage_errors_total",
			Help: "Total number of raid store read and write failures",
		},
		[]string{"operation"},
	)

	// Summary Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_cache_hits_total",
			Help: "Total number of snapshot reads served without a rebuild",
		},
	)

	CacheRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_cache_rebuilds_total",
			Help: "Total number of snapshot rebuilds by trigger",
		},
		[]string{"reason"}, // "empty", "expired", "invalidated"
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "summary_cache_invalidations_total",
			Help: "Total number of explicit cache invalidations",
		},
	)

	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summary_cache_rebuild_duration_seconds",
			Help:    "Duration of snapshot rebuilds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "summary_snapshot_records",
			Help: "Number of raid records in the current snapshot",
		},
	)

	SnapshotPlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "summary_snapshot_players",
			Help: "Number of players in the current snapshot",
		},
	)

	SnapshotParseErrors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "summary_snapshot_parse_errors",
			Help: "Number of documents that failed to load in the current snapshot",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	IngestThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_requests_throttled_total",
			Help: "Total number of ingestion requests rejected by the token bucket",
		},
	)
)

// RecordStoredDocument records the outcome of a raid store write
func RecordStoredDocument(kind string, ignored bool, err error) {
	switch {
	case err != nil:
		StorageErrors.WithLabelValues("write").Inc()
	case ignored:
		DocumentsIgnored.WithLabelValues(kind).Inc()
	default:
		DocumentsStored.WithLabelValues(kind).Inc()
	}
}

// RecordRebuild records a finished snapshot rebuild
func RecordRebuild(reason string, duration time.Duration, records int, players int, parseErrors int) {
	CacheRebuilds.WithLabelValues(reason).Inc()
	RebuildDuration.Observe(duration.Seconds())
	SnapshotRecords.Set(float64(records))
	SnapshotPlayers.Set(float64(players))
	SnapshotParseErrors.Set(float64(parseErrors))
}

// RecordAPIRequest records API request metrics
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
