// Package metrics holds the Prometheus collectors for the payment flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Link request results
const (
	LinkReused    = "reused"
	LinkGenerated = "generated"
	LinkDemo      = "demo"
)

// Gateway call results
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var PaymentLinks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "workshop",
	Name:      "payment_links_total",
	Help:      "Payment link requests by result (reused, generated, demo)",
}, []string{"result"})

var GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "workshop",
	Name:      "gateway_calls_total",
	Help:      "Calls to the payment gateway by operation and result",
}, []string{"operation", "result"})

var GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "workshop",
	Name:      "gateway_call_duration_seconds",
	Help:      "Payment gateway call latency",
	Buckets:   prometheus.DefBuckets,
}, []string{"operation"})

var Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "workshop",
	Name:      "receipt_reconciliations_total",
	Help:      "Receipt reconciliation outcomes",
}, []string{"outcome"})

var PaymentsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "workshop",
	Name:      "payments_credited_total",
	Help:      "Payments credited to invoices by source (offline, link)",
}, []string{"source"})

// ObserveGateway records one gateway call.
func ObserveGateway(operation string, seconds float64, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	GatewayCalls.WithLabelValues(operation, result).Inc()
	GatewayLatency.WithLabelValues(operation).Observe(seconds)
}
