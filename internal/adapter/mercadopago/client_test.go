package mercadopago

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/payment"
)

type apiCall struct {
	method string
	id     int
	amount float64
}

type fakeBackend struct {
	status string
	err    error
	cards  any
	calls  []apiCall
}

func (f *fakeBackend) answer(method string, id int, amount float64) (any, error) {
	f.calls = append(f.calls, apiCall{method: method, id: id, amount: amount})
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == "" {
		status = "approved"
	}
	return map[string]any{
		"id":                 id,
		"status":             status,
		"status_detail":      "accredited",
		"transaction_amount": 150.5,
		"currency_id":        "BRL",
	}, nil
}

func (f *fakeBackend) GetPayment(_ context.Context, id int) (any, error) {
	return f.answer("get", id, 0)
}

func (f *fakeBackend) CapturePayment(_ context.Context, id int, amount float64) (any, error) {
	return f.answer("capture", id, amount)
}

func (f *fakeBackend) CancelPayment(_ context.Context, id int) (any, error) {
	return f.answer("cancel", id, 0)
}

func (f *fakeBackend) RefundPayment(_ context.Context, id int, amount float64) (any, error) {
	return f.answer("refund", id, amount)
}

func (f *fakeBackend) ListCards(_ context.Context, customerID string) (any, error) {
	f.calls = append(f.calls, apiCall{method: "cards"})
	if f.err != nil {
		return nil, f.err
	}
	return f.cards, nil
}

func TestClient_Lookup(t *testing.T) {
	fake := &fakeBackend{}
	raw, err := newClientWithBackend(fake).Lookup(context.Background(), "1234567")
	require.NoError(t, err)

	assert.Equal(t, "approved", raw["status"])
	assert.Equal(t, float64(1234567), raw["id"])
	assert.Equal(t, []apiCall{{method: "get", id: 1234567}}, fake.calls)
}

func TestClient_ExecuteOperations(t *testing.T) {
	tests := []struct {
		op     adapter.Operation
		method string
		amount float64
	}{
		{adapter.OpCapture, "capture", 150.5},
		{adapter.OpRefund, "refund", 150.5},
		{adapter.OpReverse, "cancel", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			fake := &fakeBackend{}
			_, err := newClientWithBackend(fake).Execute(context.Background(), tt.op,
				payment.Data{Token: "42", Amount: 15050, Currency: "BRL"})
			require.NoError(t, err)
			assert.Equal(t, []apiCall{{method: tt.method, id: 42, amount: tt.amount}}, fake.calls)
		})
	}
}

func TestClient_InvalidPaymentID(t *testing.T) {
	fake := &fakeBackend{}
	client := newClientWithBackend(fake)

	for _, token := range []string{"chk_123", "", "-5"} {
		_, err := client.Lookup(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidPaymentID, token)
		assert.NotErrorIs(t, err, payment.ErrConfiguration)
	}
	assert.Empty(t, fake.calls)
}

func TestClient_SDKErrorIsTransport(t *testing.T) {
	fake := &fakeBackend{err: errors.New("connection reset by peer")}
	_, err := newClientWithBackend(fake).Execute(context.Background(), adapter.OpRefund,
		payment.Data{Token: "42", Amount: 100, Currency: "BRL"})
	assert.ErrorIs(t, err, payment.ErrTransport)
	assert.ErrorContains(t, err, "connection reset by peer")
}

func TestClient_MissingAccessToken(t *testing.T) {
	client := NewClient(payment.GatewayConfig{ConnectionParams: map[string]string{ParamAccessToken: "  "}})

	_, err := client.Lookup(context.Background(), "42")
	var missing *payment.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, ParamAccessToken, missing.Field)

	_, err = client.ListSources(context.Background(), "cus")
	assert.ErrorIs(t, err, payment.ErrConfiguration)
}

func TestClient_ListSources(t *testing.T) {
	fake := &fakeBackend{cards: []map[string]any{
		{
			"id":               "card_1",
			"last_four_digits": "4242",
			"expiration_month": 11,
			"expiration_year":  2030,
			"payment_method":   map[string]any{"id": "visa", "name": "Visa"},
		},
	}}
	sources, err := newClientWithBackend(fake).ListSources(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, []payment.CustomerSource{{
		ID:          "card_1",
		GatewayName: GatewayName,
		CreditCardInfo: payment.CreditCardInfo{
			Brand:    "visa",
			Last4:    "4242",
			ExpMonth: 11,
			ExpYear:  2030,
		},
	}}, sources)

	none, err := newClientWithBackend(fake).ListSources(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClient_UnknownOperation(t *testing.T) {
	_, err := newClientWithBackend(&fakeBackend{}).Execute(context.Background(), adapter.Operation("preauth"),
		payment.Data{Token: "42"})
	assert.ErrorIs(t, err, payment.ErrUnsupported)
}
