// Package metrics defines the Prometheus instrumentation surface as a
// promauto-registered metric struct.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BacktestMetrics holds all Prometheus metrics for the replay engine and
// its supporting services.
type BacktestMetrics struct {
	// Results API
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Historical data cache / provider
	CacheHitsTotal        *prometheus.CounterVec
	CacheMissesTotal      *prometheus.CounterVec
	ProviderRetriesTotal  *prometheus.CounterVec
	ProviderFailuresTotal *prometheus.CounterVec

	// Replay progress
	ReplayTicksProcessedTotal *prometheus.CounterVec
	ReplayProgressRatio       *prometheus.GaugeVec
	StrategyPnL               *prometheus.GaugeVec

	// Optional Timescale mirror
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrors        *prometheus.CounterVec

	// Per-ticker provider-fetch circuit breakers (the mirror's write
	// breaker does not report here)
	CircuitBreakerState *prometheus.GaugeVec
}

// NewBacktestMetrics creates and registers all Prometheus metrics under
// the given namespace, defaulting to "backtester".
func NewBacktestMetrics(namespace string) *BacktestMetrics {
	if namespace == "" {
		namespace = "backtester"
	}

	return &BacktestMetrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests to the results API",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of historical data cache hits",
			},
			[]string{"ticker"},
		),
		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of historical data cache misses requiring a provider fetch",
			},
			[]string{"ticker"},
		),
		ProviderRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Total number of market data provider fetch retries",
			},
			[]string{"ticker", "provider"},
		),
		ProviderFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_failures_total",
				Help:      "Total number of market data provider fetches that exhausted retries",
			},
			[]string{"ticker", "provider"},
		),

		ReplayTicksProcessedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replay_ticks_processed_total",
				Help:      "Total number of timeline ticks processed per algorithm",
			},
			[]string{"algorithm"},
		),
		ReplayProgressRatio: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "replay_progress_ratio",
				Help:      "Fraction of the timeline processed so far, per run",
			},
			[]string{"run_id"},
		),
		StrategyPnL: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "strategy_pnl_usd",
				Help:      "Current realized-plus-unrealized P&L per algorithm",
			},
			[]string{"algorithm"},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Timescale mirror query duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Total number of Timescale mirror queries",
			},
			[]string{"operation", "table"},
		),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of Timescale mirror query errors",
			},
			[]string{"operation", "table"},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per name: 0=closed, 1=open, 2=half-open",
			},
			[]string{"breaker"},
		),
	}
}
