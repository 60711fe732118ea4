package fetchkit

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for the request pipeline and SSE
// connections. Safe for concurrent use.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec

	sseConnectionsActive prometheus.Gauge
	sseEventsTotal       prometheus.Counter
}

// NewMetrics creates a collector on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a collector using the supplied registerer.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchkit_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetchkit_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetchkit_errors_total",
				Help: "Total number of request failures by classification",
			},
			[]string{"code"},
		),
		sseConnectionsActive: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "fetchkit_sse_connections_active",
				Help: "Number of currently open SSE connections",
			},
		),
		sseEventsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "fetchkit_sse_events_total",
				Help: "Total number of SSE events dispatched",
			},
		),
	}
}

func (m *Metrics) recordRequest(method string, statusCode int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *Metrics) recordError(code ErrorCode) {
	m.errorsTotal.WithLabelValues(code.String()).Inc()
}

func (m *Metrics) sseOpened() {
	m.sseConnectionsActive.Inc()
}

func (m *Metrics) sseClosed() {
	m.sseConnectionsActive.Dec()
}

func (m *Metrics) sseEvent() {
	m.sseEventsTotal.Inc()
}
