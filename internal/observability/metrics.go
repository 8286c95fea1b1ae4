// Package observability provides Prometheus metrics and logger construction.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Solana metrics
	RPCCallLatency  *prometheus.HistogramVec
	WSNotifications prometheus.Counter
	WSReconnects    *prometheus.CounterVec

	// Decoder metrics
	AccountsDecoded *prometheus.CounterVec
	AccountsSkipped *prometheus.CounterVec

	// Leaderboard metrics
	LeaderboardBuilds        *prometheus.CounterVec
	LeaderboardBuildDuration *prometheus.HistogramVec
	UsersRanked              prometheus.Gauge
	UsersDropped             prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	SnapshotsStored *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSnapshot prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "prediction_market_lab"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of program account notifications received",
		}),
		WSReconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of websocket reconnect attempts by status",
		}, []string{"status"}),

		AccountsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "accounts_decoded_total",
			Help:      "Total number of accounts decoded by kind",
		}, []string{"kind"}),
		AccountsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "accounts_skipped_total",
			Help:      "Total number of undecodable accounts skipped by kind",
		}, []string{"kind"}),

		LeaderboardBuilds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "builds_total",
			Help:      "Total number of leaderboard builds by sort key and status",
		}, []string{"sort_key", "status"}),
		LeaderboardBuildDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "build_duration_seconds",
			Help:      "Leaderboard build duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"sort_key"}),
		UsersRanked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "users_ranked",
			Help:      "Number of users ranked in the last build",
		}),
		UsersDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leaderboard",
			Name:      "users_dropped_total",
			Help:      "Total number of users dropped due to fetch failures",
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of account cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of account cache misses",
		}),

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
		SnapshotsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "stored_total",
			Help:      "Total number of leaderboard snapshots stored by sort key",
		}, []string{"sort_key"}),

		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last successful snapshot",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSNotification increments the websocket notification counter.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordWSReconnect counts a reconnect attempt.
func RecordWSReconnect(status string) {
	DefaultMetrics.WSReconnects.WithLabelValues(status).Inc()
}

// RecordDecoded increments the decoded counter for an account kind.
func RecordDecoded(kind string) {
	DefaultMetrics.AccountsDecoded.WithLabelValues(kind).Inc()
}

// RecordDecodeSkipped increments the skipped counter for an account kind.
func RecordDecodeSkipped(kind string) {
	DefaultMetrics.AccountsSkipped.WithLabelValues(kind).Inc()
}

// RecordLeaderboardBuild records a leaderboard build outcome.
func RecordLeaderboardBuild(sortKey, status string, durationSeconds float64, ranked, dropped int) {
	DefaultMetrics.LeaderboardBuilds.WithLabelValues(sortKey, status).Inc()
	DefaultMetrics.LeaderboardBuildDuration.WithLabelValues(sortKey).Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.UsersRanked.Set(float64(ranked))
	}
	DefaultMetrics.UsersDropped.Add(float64(dropped))
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		DefaultMetrics.CacheHits.Inc()
		return
	}
	DefaultMetrics.CacheMisses.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSnapshotStored records a persisted leaderboard snapshot.
func RecordSnapshotStored(sortKey string, unixSeconds int64) {
	DefaultMetrics.SnapshotsStored.WithLabelValues(sortKey).Inc()
	DefaultMetrics.LastSuccessfulSnapshot.Set(float64(unixSeconds))
}
