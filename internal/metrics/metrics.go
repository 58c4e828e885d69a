// Package metrics registers the Prometheus collectors shared by the gateway layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payment_gateways"

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "operations_total",
		Help:      "Gateway operations by gateway, kind and outcome.",
	}, []string{"gateway", "kind", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "operation_duration_seconds",
		Help:      "Latency of gateway operations including the provider round-trip.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway", "kind"})

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "circuit_state",
		Help:      "Circuit breaker state per gateway (0 closed, 1 half-open, 2 open).",
	}, []string{"gateway"})

	hookCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plugin",
		Name:      "hook_calls_total",
		Help:      "Plugin hook invocations by hook and plugin activity.",
	}, []string{"hook", "plugin", "active"})
)

// Outcome values recorded on operationsTotal.
const (
	OutcomeSuccess        = "success"
	OutcomeActionRequired = "action_required"
	OutcomeFailure        = "failure"
	OutcomeConfigError    = "config_error"
)

// ObserveOperation records one finished gateway operation.
func ObserveOperation(gateway, kind, outcome string, seconds float64) {
	operationsTotal.WithLabelValues(gateway, kind, outcome).Inc()
	operationDuration.WithLabelValues(gateway, kind).Observe(seconds)
}

// SetBreakerState publishes the breaker state for gateway.
func SetBreakerState(gateway string, state float64) {
	breakerState.WithLabelValues(gateway).Set(state)
}

// ObserveHook counts a plugin hook call.
func ObserveHook(hook, plugin string, active bool) {
	label := "false"
	if active {
		label = "true"
	}
	hookCallsTotal.WithLabelValues(hook, plugin, label).Inc()
}

// OperationsTotal exposes the operation counter for tests and dashboards.
func OperationsTotal() *prometheus.CounterVec { return operationsTotal }

// OperationDuration exposes the latency histogram.
func OperationDuration() *prometheus.HistogramVec { return operationDuration }

// BreakerState exposes the breaker gauge.
func BreakerState() *prometheus.GaugeVec { return breakerState }

// HookCallsTotal exposes the hook counter.
func HookCallsTotal() *prometheus.CounterVec { return hookCallsTotal }
