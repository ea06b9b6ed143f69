package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Business metrics
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_transactions_total",
			Help: "Total number of ledger transactions recorded",
		},
		[]string{"type", "status"},
	)

	ValuationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_valuations_total",
			Help: "Total number of portfolio valuations computed",
		},
		[]string{"result"}, // ok, price_unavailable, error
	)

	PerformanceReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portfolio_performance_reports_total",
			Help: "Total number of performance reports computed",
		},
	)

	BacktestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_backtest_runs_total",
			Help: "Total number of backtest runs by terminal status",
		},
		[]string{"status"},
	)

	BacktestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portfolio_backtest_duration_seconds",
			Help:    "Backtest simulation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
	)

	SimulatedTradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_simulated_trades_total",
			Help: "Total number of trades executed inside backtests",
		},
		[]string{"side"},
	)

	// System metrics
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portfolio_database_connections",
			Help: "Number of database connections",
		},
		[]string{"state"}, // open, idle, in_use
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "table"},
	)

	PriceCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_price_cache_total",
			Help: "Price cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, error
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"endpoint"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordTransaction records a posted or voided ledger transaction
func RecordTransaction(txType, status string) {
	TransactionsTotal.WithLabelValues(txType, status).Inc()
}

// RecordValuation records a valuation computation outcome
func RecordValuation(result string) {
	ValuationsTotal.WithLabelValues(result).Inc()
}

// RecordBacktestRun records a finished backtest run
func RecordBacktestRun(status string, duration float64) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	BacktestDuration.Observe(duration)
}

// RecordSimulatedTrade records a trade executed during a simulation
func RecordSimulatedTrade(side string) {
	SimulatedTradesTotal.WithLabelValues(side).Inc()
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation, table string, duration float64) {
	DatabaseQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordPriceCache records a price cache lookup outcome
func RecordPriceCache(outcome string) {
	PriceCacheTotal.WithLabelValues(outcome).Inc()
}

// RecordRateLimitHit records a rate limit hit
func RecordRateLimitHit(endpoint string) {
	RateLimitHitsTotal.WithLabelValues(endpoint).Inc()
}
