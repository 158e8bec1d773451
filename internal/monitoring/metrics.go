package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Total number of backtest runs completed",
		},
		[]string{"status"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall-clock duration of backtest runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Order metrics
	ordersExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_orders_executed_total",
			Help: "Total number of orders executed across runs",
		},
		[]string{"symbol", "side"},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_orders_rejected_total",
			Help: "Total number of orders rejected by the capital ledger",
		},
		[]string{"symbol", "reason"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(ordersExecuted)
	prometheus.MustRegister(ordersRejected)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordRun records a completed run and its duration in seconds
func RecordRun(status string, seconds float64) {
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(seconds)
}

// RecordOrders records n executed orders for one symbol and side
func RecordOrders(symbol, side string, n int) {
	ordersExecuted.WithLabelValues(symbol, side).Add(float64(n))
}

// RecordRejection records a ledger rejection
func RecordRejection(symbol, reason string) {
	ordersRejected.WithLabelValues(symbol, reason).Inc()
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
