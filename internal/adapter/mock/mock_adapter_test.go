package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
)

func TestNewMockClient(t *testing.T) {
	m := NewMockClient("test_mock")
	require.NotNil(t, m)
	assert.Equal(t, "test_mock", m.Name())
}

func TestMockClient_DefaultBehavior(t *testing.T) {
	m := NewMockClient("default_mock")
	ctx := context.Background()

	raw, err := m.Lookup(ctx, "chk_1")
	require.NoError(t, err)
	assert.Equal(t, SuccessCode, raw["result"].(map[string]any)["code"])
	assert.NotEmpty(t, raw["id"])

	raw, err = m.Execute(ctx, adapter.OpCapture, payment.Data{Token: "chk_1", Amount: 5000, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "50.00", raw["amount"])
	assert.Equal(t, "USD", raw["currency"])

	sources, err := m.ListSources(ctx, "cus_1")
	assert.ErrorIs(t, err, payment.ErrUnsupported)
	assert.Empty(t, sources)

	calls := m.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Lookup", calls[0].Method)
	assert.Equal(t, adapter.OpCapture, calls[1].Operation)
	assert.Equal(t, "cus_1", calls[2].CustomerID)
}

func TestMockClient_CustomFuncs(t *testing.T) {
	boom := errors.New("connection reset")
	m := NewMockClient("custom")
	m.ExecuteFunc = func(ctx context.Context, op adapter.Operation, data payment.Data) (map[string]any, error) {
		return nil, boom
	}
	m.ListSourcesFunc = func(ctx context.Context, customerID string) ([]payment.CustomerSource, error) {
		return []payment.CustomerSource{{ID: "card_1", GatewayName: "custom"}}, nil
	}

	_, err := m.Execute(context.Background(), adapter.OpRefund, payment.Data{Token: "t"})
	assert.ErrorIs(t, err, boom)

	sources, err := m.ListSources(context.Background(), "cus")
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestResult_OmitsEmptyFields(t *testing.T) {
	raw := Result("900.100.100", "declined", "", "", "")
	assert.NotContains(t, raw, "id")
	assert.NotContains(t, raw, "amount")
	assert.NotContains(t, raw, "currency")
	assert.Equal(t, "900.100.100", raw["result"].(map[string]any)["code"])
}

func TestShapedClient_FollowsNormalizerConfig(t *testing.T) {
	cfg := normalizer.Config{
		CodePath:      "status",
		IDField:       "id",
		AmountField:   "transaction_amount",
		CurrencyField: "currency_id",
		SuccessCodes:  []string{"approved", "authorized"},
	}
	m := NewShapedClient("shaped", cfg)
	norm := normalizer.New(cfg)

	raw, err := m.Execute(context.Background(), adapter.OpCapture, payment.Data{Token: "42", Amount: 1000, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "approved", raw["status"])
	assert.Equal(t, "10.00", raw["transaction_amount"])
	assert.NotContains(t, raw, "result")

	resp := norm.Normalize(raw, payment.KindCapture, payment.Data{})
	assert.True(t, resp.IsSuccess)
	assert.Equal(t, int64(1000), resp.Amount)
	assert.Equal(t, "USD", resp.Currency)

	raw, err = m.Lookup(context.Background(), "42")
	require.NoError(t, err)
	assert.NotContains(t, raw, "transaction_amount")
	assert.True(t, norm.Normalize(raw, payment.KindAuth, payment.Data{}).IsSuccess)
}

func TestShapedClient_NestedPaths(t *testing.T) {
	m := NewShapedClient("nested", normalizer.Config{CodePath: "result.code", IDField: "id"})

	raw, err := m.Lookup(context.Background(), "chk_1")
	require.NoError(t, err)
	assert.Equal(t, SuccessCode, raw["result"].(map[string]any)["code"])
}
