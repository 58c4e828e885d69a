package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-gateways/internal/events"
)

var (
	time1 = time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	time2 = time.Date(2023, 1, 1, 10, 5, 0, 0, time.UTC)
	time3 = time.Date(2023, 1, 1, 10, 10, 0, 0, time.UTC)
	time0 = time.Date(2023, 1, 1, 9, 55, 0, 0, time.UTC)
)

func paymentEntry(at time.Time, actor, kind, success, actionRequired, amount, currency, errMsg string) events.Entry {
	return events.Entry{
		Type:    "payment_" + kind,
		Actor:   actor,
		Subject: "chk",
		Payload: map[string]string{
			"kind":            kind,
			"success":         success,
			"action_required": actionRequired,
			"amount":          amount,
			"currency":        currency,
			"error":           errMsg,
		},
		CreatedAt: at,
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		entries  []events.Entry
		expected *Retrospective
	}{
		{
			name:     "EmptyLog",
			entries:  nil,
			expected: newRetrospective(),
		},
		{
			name: "MixedOutcomes",
			entries: []events.Entry{
				paymentEntry(time2, "hyperpay", "capture", "true", "false", "5000", "USD", ""),
				paymentEntry(time1, "hyperpay", "capture", "false", "true", "5000", "USD", "transaction declined (800.100.151)"),
				paymentEntry(time3, "mercadopago", "refund", "true", "false", "1500", "BRL", ""),
				paymentEntry(time0, "mercadopago", "void", "false", "false", "100", "BRL", "mercadopago: transport failure"),
				{Type: events.TypeInvoiceSent, Actor: "staff-1", Subject: "inv-1", CreatedAt: time2},
			},
			expected: &Retrospective{
				TotalOperations:    4,
				Successful:         2,
				ActionRequired:     1,
				Failed:             1,
				InvoicesSent:       1,
				OperationsByKind:   map[string]int{"capture": 2, "refund": 1, "void": 1},
				GatewayUsage:       map[string]int{"hyperpay": 2, "mercadopago": 2},
				CapturedByCurrency: map[string]int64{"USD": 5000},
				RefundedByCurrency: map[string]int64{"BRL": 1500},
				ErrorBreakdown: map[string]int{
					"transaction declined (800.100.151)": 1,
					"mercadopago: transport failure":     1,
				},
				DateFrom: time0,
				DateTo:   time3,
				Duration: 15 * time.Minute,
			},
		},
		{
			name: "UnparseableAmountStillCountsOutcome",
			entries: []events.Entry{
				paymentEntry(time1, "hyperpay", "capture", "true", "false", "", "USD", ""),
			},
			expected: &Retrospective{
				TotalOperations:    1,
				Successful:         1,
				OperationsByKind:   map[string]int{"capture": 1},
				GatewayUsage:       map[string]int{"hyperpay": 1},
				CapturedByCurrency: map[string]int64{},
				RefundedByCurrency: map[string]int64{},
				ErrorBreakdown:     map[string]int{},
				DateFrom:           time1,
				DateTo:             time1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.entries))
		})
	}
}

type brokenLog struct{}

func (brokenLog) Append(context.Context, events.Entry) (events.Entry, error) {
	return events.Entry{}, errors.New("table missing")
}

func (brokenLog) List(context.Context) ([]events.Entry, error) {
	return nil, errors.New("table missing")
}

func TestReporter_BuildWindow(t *testing.T) {
	log := events.NewMemoryLog()
	ctx := context.Background()
	for _, at := range []time.Time{time0, time1, time2, time3} {
		_, err := log.Append(ctx, paymentEntry(at, "hyperpay", "capture", "true", "false", "100", "USD", ""))
		require.NoError(t, err)
	}

	report, err := NewReporter(log).Build(ctx, time1, time3)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalOperations)
	assert.Equal(t, int64(200), report.CapturedByCurrency["USD"])
	assert.Equal(t, time1, report.DateFrom)
	assert.Equal(t, time2, report.DateTo)

	all, err := NewReporter(log).Build(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalOperations)

	_, err = NewReporter(brokenLog{}).Build(ctx, time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "reporting: list audit log")
}
