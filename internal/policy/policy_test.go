package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-gateways/internal/payment"
)

func TestNewCapturePolicy_DefaultRule(t *testing.T) {
	p, err := NewCapturePolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, p.RuleIDs())
	assert.Equal(t, p.RuleIDs(), Default().RuleIDs())
}

func TestNewCapturePolicy_CompilationError(t *testing.T) {
	_, err := NewCapturePolicy([]Rule{
		{ID: "small", Expression: "amount < 100000"},
		{ID: "broken", Expression: "currency =="},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrConfiguration)

	var invalid *payment.InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "capture_rule.broken", invalid.Field)
}

func TestNewCapturePolicy_UnknownVariable(t *testing.T) {
	_, err := NewCapturePolicy([]Rule{{ID: "risk", Expression: "auth_success && risk_score < 10"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrConfiguration)

	var invalid *payment.InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "capture_rule.risk", invalid.Field)
	assert.Contains(t, invalid.Reason, "risk_score")
}

func TestNewCapturePolicy_EmptyExpression(t *testing.T) {
	_, err := NewCapturePolicy([]Rule{{ID: "empty", Expression: "  "}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty expression")
}

func TestShouldCapture(t *testing.T) {
	p, err := NewCapturePolicy([]Rule{
		{ID: "base", Expression: DefaultRule},
		{ID: "limit", Expression: "amount <= 100000"},
		{ID: "currencies", Expression: "currency == 'USD' || currency == 'SAR'"},
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Input
		want bool
	}{
		{"all rules pass", Input{AutoCapture: true, AuthSuccess: true, Amount: 5000, Currency: "USD", Gateway: "HyperPay"}, true},
		{"auto capture disabled", Input{AutoCapture: false, AuthSuccess: true, Amount: 5000, Currency: "USD"}, false},
		{"authorization failed", Input{AutoCapture: true, AuthSuccess: false, Amount: 5000, Currency: "USD"}, false},
		{"over limit", Input{AutoCapture: true, AuthSuccess: true, Amount: 250000, Currency: "USD"}, false},
		{"other currency", Input{AutoCapture: true, AuthSuccess: true, Amount: 5000, Currency: "EUR"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ShouldCapture(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldCapture_NonBooleanRule(t *testing.T) {
	p, err := NewCapturePolicy([]Rule{{ID: "math", Expression: "amount + 1"}})
	require.NoError(t, err)

	_, err = p.ShouldCapture(Input{AutoCapture: true, AuthSuccess: true, Amount: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `rule "math"`)
}
