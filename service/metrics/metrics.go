package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Price Oracle Metrics
	priceFetchesTotal  *prometheus.CounterVec
	priceFetchDuration *prometheus.HistogramVec

	// Pump Metrics
	pumpsTotal   *prometheus.CounterVec
	pumpDuration *prometheus.HistogramVec
	pumpLamports *prometheus.HistogramVec

	// Ledger Metrics
	ledgerOpsTotal   *prometheus.CounterVec
	ledgerOpDuration *prometheus.HistogramVec

	// HTTP / SSE Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	sseActiveConnections *prometheus.GaugeVec

	// NATS Metrics
	eventsPublishedTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		priceFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_fetches_total",
				Help: "Total number of price oracle fetches by status",
			},
			[]string{"status"},
		),
		priceFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "price_fetch_duration_seconds",
				Help:    "Duration of price oracle fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"status"},
		),
		pumpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pumps_total",
				Help: "Total number of pump attempts by outcome",
			},
			[]string{"outcome"},
		),
		pumpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pump_duration_seconds",
				Help:    "End-to-end duration of pump attempts in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		pumpLamports: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pump_lamports",
				Help:    "Gross lamports moved per confirmed pump",
				Buckets: prometheus.ExponentialBuckets(10000, 10, 8),
			},
			[]string{"split"},
		),
		ledgerOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total number of ledger store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		ledgerOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger store operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by path and status code",
			},
			[]string{"path", "code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"path"},
		),
		sseActiveConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of currently connected SSE clients",
			},
			[]string{"stream"},
		),
		eventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "referral_events_published_total",
				Help: "Total number of referral events published to NATS by status",
			},
			[]string{"status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method).Observe(duration)
}

// RecordPriceFetch records a price oracle fetch with its duration.
func (m *Metrics) RecordPriceFetch(status string, duration float64) {
	m.priceFetchesTotal.WithLabelValues(status).Inc()
	m.priceFetchDuration.WithLabelValues(status).Observe(duration)
}

// RecordPump records a completed pump attempt with its outcome and duration.
func (m *Metrics) RecordPump(outcome string, duration float64) {
	m.pumpsTotal.WithLabelValues(outcome).Inc()
	m.pumpDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordPumpLamports records the lamport amounts of a confirmed pump.
func (m *Metrics) RecordPumpLamports(recipient, referrer uint64) {
	m.pumpLamports.WithLabelValues("recipient").Observe(float64(recipient))
	if referrer > 0 {
		m.pumpLamports.WithLabelValues("referrer").Observe(float64(referrer))
	}
}

// RecordLedgerOp records a ledger store operation with its duration.
func (m *Metrics) RecordLedgerOp(operation, status string, duration float64) {
	m.ledgerOpsTotal.WithLabelValues(operation, status).Inc()
	m.ledgerOpDuration.WithLabelValues(operation).Observe(duration)
}

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Metrics) RecordHTTPRequest(path, code string, duration float64) {
	m.httpRequestsTotal.WithLabelValues(path, code).Inc()
	m.httpRequestDuration.WithLabelValues(path).Observe(duration)
}

// SSEConnectionOpened increments the active SSE connection gauge.
func (m *Metrics) SSEConnectionOpened(stream string) {
	m.sseActiveConnections.WithLabelValues(stream).Inc()
}

// SSEConnectionClosed decrements the active SSE connection gauge.
func (m *Metrics) SSEConnectionClosed(stream string) {
	m.sseActiveConnections.WithLabelValues(stream).Dec()
}

// RecordEventPublished records a NATS publish attempt.
func (m *Metrics) RecordEventPublished(status string) {
	m.eventsPublishedTotal.WithLabelValues(status).Inc()
}
