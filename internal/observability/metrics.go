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
	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCBatchSize   prometheus.Histogram

	// Codec metrics
	DecodeFailures *prometheus.CounterVec

	// Registry metrics
	TokensRegistered prometheus.Counter
	NFTsRegistered   prometheus.Counter
	RegistrySize     *prometheus.GaugeVec

	// Refresh metrics
	BalancesRefreshed     prometheus.Counter
	RefreshFailures       prometheus.Counter
	StaleResultsDropped   prometheus.Counter
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "evm_token_watch"
	}

	return &Metrics{
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ethrpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ethrpc",
			Name:      "batch_size",
			Help:      "Number of requests per JSON-RPC batch",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "abi",
			Name:      "decode_failures_total",
			Help:      "Total number of undecodable return payloads by field",
		}, []string{"field"}),
		TokensRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_registered_total",
			Help:      "Total number of fungible tokens registered",
		}),
		NFTsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "nfts_registered_total",
			Help:      "Total number of NFT contracts registered",
		}),
		RegistrySize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "size",
			Help:      "Current number of registry entries by kind",
		}, []string{"kind"}),
		BalancesRefreshed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "balances_refreshed_total",
			Help:      "Total number of successful balance evaluations",
		}),
		RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "refresh_failures_total",
			Help:      "Total number of failed balance evaluations",
		}),
		StaleResultsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "stale_results_dropped_total",
			Help:      "Total number of in-flight results discarded because their target changed",
		}),
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of the last successful balance refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCLatency records a JSON-RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCBatchSize records the size of a dispatched batch.
func RecordRPCBatchSize(n int) {
	DefaultMetrics.RPCBatchSize.Observe(float64(n))
}

// RecordDecodeFailure records an undecodable return payload.
func RecordDecodeFailure(field string) {
	DefaultMetrics.DecodeFailures.WithLabelValues(field).Inc()
}

// RecordTokenRegistered increments the token registration counter.
func RecordTokenRegistered() {
	DefaultMetrics.TokensRegistered.Inc()
}

// RecordNFTRegistered increments the NFT registration counter.
func RecordNFTRegistered() {
	DefaultMetrics.NFTsRegistered.Inc()
}

// UpdateRegistrySize updates the registry size gauge for a kind.
func UpdateRegistrySize(kind string, n int) {
	DefaultMetrics.RegistrySize.WithLabelValues(kind).Set(float64(n))
}

// RecordBalanceRefreshed records a successful balance evaluation.
func RecordBalanceRefreshed(unixSeconds float64) {
	DefaultMetrics.BalancesRefreshed.Inc()
	DefaultMetrics.LastSuccessfulRefresh.Set(unixSeconds)
}

// RecordRefreshFailure records a failed balance evaluation.
func RecordRefreshFailure() {
	DefaultMetrics.RefreshFailures.Inc()
}

// RecordStaleResultDropped records a discarded in-flight result.
func RecordStaleResultDropped() {
	DefaultMetrics.StaleResultsDropped.Inc()
}
