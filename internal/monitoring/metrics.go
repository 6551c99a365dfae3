package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_orders_total",
			Help: "Orders submitted, by symbol, side and decision reason",
		},
		[]string{"symbol", "side", "reason"},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_bot_open_positions",
			Help: "Open positions reported by the broker at the start of the last cycle",
		},
	)

	lastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signal_bot_last_price",
			Help: "Last observed price per symbol",
		},
		[]string{"symbol"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_bot_errors_total",
			Help: "Errors by gateway error category",
		},
		[]string{"category"},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signal_bot_cycle_duration_seconds",
			Help:    "Wall time of one pass over every symbol",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(lastPrice)
	prometheus.MustRegister(errorsTotal)
	prometheus.MustRegister(cycleDuration)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOrder counts a submitted order
func RecordOrder(symbol, side, reason string) {
	ordersTotal.WithLabelValues(symbol, side, reason).Inc()
}

// SetOpenPositions records the broker's open position count
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordError counts an error under its category
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}

// ObserveCycle records how long a cycle took
func ObserveCycle(d time.Duration) {
	cycleDuration.Observe(d.Seconds())
}
