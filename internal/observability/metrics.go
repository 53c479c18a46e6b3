// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Intake metrics
	SwapsReceived  prometheus.Counter
	SwapsRejected  *prometheus.CounterVec
	SwapsIngested  *prometheus.CounterVec
	SwapsDuplicate prometheus.Counter
	IngestErrors   prometheus.Counter
	IngestLatency  prometheus.Histogram

	// Accounting metrics
	RealizedTrades  *prometheus.CounterVec
	DegenerateSells prometheus.Counter
	MirrorErrors    prometheus.Counter

	// Discovery metrics
	DiscoveryRuns     *prometheus.CounterVec
	DiscoveryDuration prometheus.Histogram
	WinnersAnnounced  prometheus.Counter

	// Stats cache metrics
	StatsCacheRequests *prometheus.CounterVec

	// Notification metrics
	FeedClients prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	TxRetries       prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulDiscovery prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_winrate"
	}

	return &Metrics{
		// Intake metrics
		SwapsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "swaps_received_total",
			Help:      "Total number of swap records received",
		}),
		SwapsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "swaps_rejected_total",
			Help:      "Total number of swap records rejected by reason",
		}, []string{"reason"}),
		SwapsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "swaps_ingested_total",
			Help:      "Total number of new swap records stored by direction",
		}, []string{"direction"}),
		SwapsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "swaps_duplicate_total",
			Help:      "Total number of redelivered swap records ignored",
		}),
		IngestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "ingest_errors_total",
			Help:      "Total number of swap records that failed to ingest",
		}),
		IngestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "ingest_latency_seconds",
			Help:      "Swap ingest latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Accounting metrics
		RealizedTrades: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "realized_trades_total",
			Help:      "Total number of realized trades by outcome",
		}, []string{"outcome"}),
		DegenerateSells: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "degenerate_sells_total",
			Help:      "Total number of sells applied without a realized trade",
		}),
		MirrorErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accounting",
			Name:      "mirror_errors_total",
			Help:      "Total number of realized trades the analytics mirror failed to store",
		}),

		// Discovery metrics
		DiscoveryRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Total number of discovery runs by status",
		}, []string{"status"}),
		DiscoveryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "duration_seconds",
			Help:      "Discovery run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		WinnersAnnounced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "winners_announced_total",
			Help:      "Total number of wallets announced as long-term winners",
		}),

		// Stats cache metrics
		StatsCacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "cache_requests_total",
			Help:      "Total number of stats cache lookups by query and result",
		}, []string{"query", "result"}),

		// Notification metrics
		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "feed_clients",
			Help:      "Number of connected websocket feed clients",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		TxRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "tx_retries_total",
			Help:      "Total number of ledger transactions retried after a conflict",
		}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulDiscovery: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_discovery_timestamp",
			Help:      "Unix timestamp of last successful discovery run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSwapReceived increments the received counter.
func RecordSwapReceived() {
	DefaultMetrics.SwapsReceived.Inc()
}

// RecordSwapRejected records a swap dropped at the intake boundary.
func RecordSwapRejected(reason string) {
	DefaultMetrics.SwapsRejected.WithLabelValues(reason).Inc()
}

// RecordSwapIngested records a new swap and its ingest latency.
func RecordSwapIngested(direction string, seconds float64, unixNow int64) {
	DefaultMetrics.SwapsIngested.WithLabelValues(direction).Inc()
	DefaultMetrics.IngestLatency.Observe(seconds)
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unixNow))
}

// RecordSwapDuplicate increments the duplicate counter.
func RecordSwapDuplicate() {
	DefaultMetrics.SwapsDuplicate.Inc()
}

// RecordIngestError increments the ingest error counter.
func RecordIngestError() {
	DefaultMetrics.IngestErrors.Inc()
}

// RecordRealizedTrade records a realized trade by outcome.
func RecordRealizedTrade(win bool) {
	outcome := "loss"
	if win {
		outcome = "win"
	}
	DefaultMetrics.RealizedTrades.WithLabelValues(outcome).Inc()
}

// RecordDegenerateSell increments the degenerate sell counter.
func RecordDegenerateSell() {
	DefaultMetrics.DegenerateSells.Inc()
}

// RecordMirrorError increments the analytics mirror error counter.
func RecordMirrorError() {
	DefaultMetrics.MirrorErrors.Inc()
}

// RecordDiscoveryRun records a discovery run.
func RecordDiscoveryRun(status string, durationSeconds float64, announced int, unixNow int64) {
	DefaultMetrics.DiscoveryRuns.WithLabelValues(status).Inc()
	DefaultMetrics.DiscoveryDuration.Observe(durationSeconds)
	DefaultMetrics.WinnersAnnounced.Add(float64(announced))
	if status == "success" {
		DefaultMetrics.LastSuccessfulDiscovery.Set(float64(unixNow))
	}
}

// RecordStatsCache records a stats cache lookup.
func RecordStatsCache(query string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.StatsCacheRequests.WithLabelValues(query, result).Inc()
}

// SetFeedClients updates the websocket client gauge.
func SetFeedClients(n int) {
	DefaultMetrics.FeedClients.Set(float64(n))
}

// RecordTxRetry increments the transaction retry counter.
func RecordTxRetry() {
	DefaultMetrics.TxRetries.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
