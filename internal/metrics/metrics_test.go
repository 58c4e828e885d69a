package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Collectors are registered globally, so assertions compare deltas.

func TestObserveOperation(t *testing.T) {
	counter := OperationsTotal().WithLabelValues("metrics-test", "capture", OutcomeSuccess)
	before := testutil.ToFloat64(counter)

	ObserveOperation("metrics-test", "capture", OutcomeSuccess, 0.25)
	ObserveOperation("metrics-test", "capture", OutcomeSuccess, 0.5)

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(OperationDuration()), 1)
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("metrics-test", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(BreakerState().WithLabelValues("metrics-test")))

	SetBreakerState("metrics-test", 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(BreakerState().WithLabelValues("metrics-test")))
}

func TestObserveHook(t *testing.T) {
	active := HookCallsTotal().WithLabelValues("authorize_payment", "metrics-test", "true")
	inactive := HookCallsTotal().WithLabelValues("authorize_payment", "metrics-test", "false")
	beforeActive, beforeInactive := testutil.ToFloat64(active), testutil.ToFloat64(inactive)

	ObserveHook("authorize_payment", "metrics-test", true)
	ObserveHook("authorize_payment", "metrics-test", false)
	ObserveHook("authorize_payment", "metrics-test", false)

	assert.Equal(t, beforeActive+1, testutil.ToFloat64(active))
	assert.Equal(t, beforeInactive+2, testutil.ToFloat64(inactive))
}
