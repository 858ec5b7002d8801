package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion and rating pipeline

var (
	// Feed fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchrank_fetches_total",
			Help: "Total number of upstream feed fetches",
		},
		[]string{"competition", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchrank_fetch_duration_seconds",
			Help:    "Duration of upstream feed fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"competition"},
	)

	FetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_fetch_retries_total",
			Help: "Total number of fetch retry attempts",
		},
	)

	// Store metrics
	MatchesInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_matches_inserted_total",
			Help: "Total number of match records inserted",
		},
	)

	MatchesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_matches_skipped_total",
			Help: "Total number of duplicate match records skipped on insert",
		},
	)

	StorageUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_storage_unavailable_total",
			Help: "Total number of queries degraded to empty results by storage errors",
		},
	)

	// Scheduler metrics
	WindowsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_batch_windows_total",
			Help: "Total number of batch windows processed",
		},
	)

	CompetitionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchrank_competition_outcomes_total",
			Help: "Per-competition fetch outcomes within batch windows",
		},
		[]string{"competition", "outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchrank_run_duration_seconds",
			Help:    "Duration of full ingestion runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Rating metrics
	ReplayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchrank_replay_duration_seconds",
			Help:    "Duration of full rating replays in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 5, 10, 30},
		},
		[]string{"league"},
	)

	MatchesReplayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_matches_replayed_total",
			Help: "Total number of matches fed through the rating engine",
		},
	)

	SnapshotsOutOfOrder = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_snapshots_out_of_order_total",
			Help: "Total number of rating snapshots appended with a non-monotonic date",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchrank_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_kind"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_cache_hits_total",
			Help: "Total number of ranking cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchrank_cache_misses_total",
			Help: "Total number of ranking cache misses",
		},
	)
)

// RecordFetch records a feed fetch attempt outcome.
func RecordFetch(competition, status string, duration float64) {
	FetchesTotal.WithLabelValues(competition, status).Inc()
	FetchDuration.WithLabelValues(competition).Observe(duration)
}

// RecordInserts records insert/skip counts from one parse pass.
func RecordInserts(inserted, skipped int) {
	MatchesInserted.Add(float64(inserted))
	MatchesSkipped.Add(float64(skipped))
}

// RecordCompetitionOutcome records a per-competition scheduler outcome.
func RecordCompetitionOutcome(competition, outcome string) {
	CompetitionOutcomes.WithLabelValues(competition, outcome).Inc()
}

// RecordError records an error by component and taxonomy kind.
func RecordError(component, kind string) {
	ErrorsTotal.WithLabelValues(component, kind).Inc()
}

// RecordStorageUnavailable records a query degraded to an empty result.
func RecordStorageUnavailable() {
	StorageUnavailable.Inc()
}

// RecordSnapshotOutOfOrder records an out-of-order snapshot append.
func RecordSnapshotOutOfOrder() {
	SnapshotsOutOfOrder.Inc()
}

// RecordCacheHit records a ranking cache hit.
func RecordCacheHit() { CacheHitsTotal.Inc() }

// RecordCacheMiss records a ranking cache miss.
func RecordCacheMiss() { CacheMissesTotal.Inc() }
