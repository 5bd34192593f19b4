// Package metrics wires github.com/prometheus/client_golang into the
// handful of gauges/counters the dispatcher and the HTTP transport can
// genuinely produce, exposed via promhttp on the HTTP transport's
// /metrics route.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgo_dispatcher_requests_total",
		Help: "Total JSON-RPC requests/notifications submitted to the dispatcher's worker pool, by method.",
	}, []string{"method"})

	overloadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgo_dispatcher_overloaded_total",
		Help: "Requests rejected because the dispatcher's worker pool was saturated, by method.",
	}, []string{"method"})

	handlerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpgo_dispatcher_handler_errors_total",
		Help: "Handler invocations that completed with an error response, by method.",
	}, []string{"method"})

	handlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcpgo_dispatcher_handler_duration_seconds",
		Help:    "Wall-clock time spent inside a dispatched handler, by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	sseConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mcpgo_http_sse_connections",
		Help: "Number of currently open GET /sse connections.",
	})
)

// RecordRequest records that method was successfully submitted to the
// dispatcher's worker pool.
func RecordRequest(method string) { requestsTotal.WithLabelValues(method).Inc() }

// RecordOverload records that method was rejected because the pool was
// saturated.
func RecordOverload(method string) { overloadedTotal.WithLabelValues(method).Inc() }

// RecordHandlerError records that method's handler returned an error
// (a JSON-RPC error response, or a failed notification). Application-level
// {isError:true} results are successful responses and are not counted.
func RecordHandlerError(method string) { handlerErrorsTotal.WithLabelValues(method).Inc() }

// ObserveHandlerDuration records how long method's handler took to run.
func ObserveHandlerDuration(method string, d time.Duration) {
	handlerDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SSEConnectionOpened increments the open-SSE-connection gauge.
func SSEConnectionOpened() { sseConnections.Inc() }

// SSEConnectionClosed decrements the open-SSE-connection gauge.
func SSEConnectionClosed() { sseConnections.Dec() }
