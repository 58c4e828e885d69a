package hyperpay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/plugin"
	"github.com/yourorg/payment-gateways/internal/settings"
)

func storedSettings(active bool) settings.Configuration {
	values := Schema.Defaults()
	values["User ID"] = "8a8294174b7ecb28014b9699220015cc"
	values["Password"] = "sy6KJsT8"
	values["Entity ID"] = "8a8294174b7ecb28014b9699220015ca"
	values["Supported currencies"] = "USD, SAR"
	return settings.Configuration{Active: active, Values: values}
}

// newTestPlugin wires a plugin whose client talks to handler.
func newTestPlugin(t *testing.T, handler http.HandlerFunc) *plugin.GatewayPlugin {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	stored := storedSettings(true)
	cfg, err := Schema.Bind(GatewayName, stored.Values, payment.EnvironmentSandbox, time.Second)
	require.NoError(t, err)

	p, err := NewPlugin(stored, plugin.Options{
		Environment: payment.EnvironmentSandbox,
		Timeout:     time.Second,
		Client:      NewClient(cfg, WithBaseURL(server.URL)),
	})
	require.NoError(t, err)
	return p
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestPlugin_AuthorizeApproved(t *testing.T) {
	p := newTestPlugin(t, respond(`{"result":{"code":"000.000.000"},"id":"tx_1"}`))

	resp, err := p.AuthorizePayment(context.Background(), payment.Data{Token: "chk_123", Amount: 5000, Currency: "USD"}, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.False(t, resp.ActionRequired)
	assert.Equal(t, "tx_1", resp.TransactionID)
	assert.Equal(t, payment.KindAuth, resp.Kind)
	assert.Equal(t, int64(5000), resp.Amount)
	assert.Equal(t, "USD", resp.Currency)
}

func TestPlugin_CaptureOutsideAllowList(t *testing.T) {
	p := newTestPlugin(t, respond(`{"result":{"code":"900.100.100"}}`))

	resp, err := p.CapturePayment(context.Background(), payment.Data{Token: "chk_123", Amount: 5000, Currency: "USD"}, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess)
	assert.True(t, resp.ActionRequired)
	assert.Equal(t, payment.KindCapture, resp.Kind)
	assert.NotEmpty(t, resp.Error)
}

func TestPlugin_RefundNetworkFailure(t *testing.T) {
	p := newTestPlugin(t, func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})

	resp, err := p.RefundPayment(context.Background(), payment.Data{Token: "chk_123", Amount: 5000, Currency: "USD"}, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess)
	assert.False(t, resp.ActionRequired)
	assert.Equal(t, payment.KindRefund, resp.Kind)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, "chk_123", resp.TransactionID)
}

func TestPlugin_ReviewCodesCountAsSuccess(t *testing.T) {
	for _, code := range SuccessCodes {
		t.Run(code, func(t *testing.T) {
			p := newTestPlugin(t, respond(`{"id":"tx","result":{"code":"`+code+`"}}`))
			resp, err := p.VoidPayment(context.Background(), payment.Data{Token: "t", Amount: 100, Currency: "SAR"}, payment.GatewayResponse{})
			require.NoError(t, err)
			assert.True(t, resp.IsSuccess)
			assert.Equal(t, payment.KindVoid, resp.Kind)
		})
	}
}

func TestPlugin_PublicConfigOmitsSecrets(t *testing.T) {
	p, err := NewPlugin(storedSettings(true), plugin.Options{})
	require.NoError(t, err)

	items, err := p.GetPaymentConfig(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []plugin.ConfigItem{{Field: ParamEntityID, Value: "8a8294174b7ecb28014b9699220015ca"}}, items)

	currencies, err := p.GetSupportedCurrencies(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"USD", "SAR"}, currencies)

	assert.True(t, p.Config().AutoCapture)
	assert.Equal(t, GatewayName, p.Name())
	assert.Equal(t, PluginID, p.ID())
}

func TestPlugin_MissingStoredField(t *testing.T) {
	stored := storedSettings(true)
	delete(stored.Values, "Entity ID")

	_, err := NewPlugin(stored, plugin.Options{})
	var missing *payment.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Entity ID", missing.Field)
}

func TestPlugin_EmptyCredentialIsConfigurationError(t *testing.T) {
	stored := storedSettings(true)
	stored.Values["Password"] = ""
	p, err := NewPlugin(stored, plugin.Options{})
	require.NoError(t, err)

	_, err = p.CapturePayment(context.Background(), payment.Data{Token: "t", Amount: 100, Currency: "USD"}, payment.GatewayResponse{})
	assert.ErrorIs(t, err, payment.ErrConfiguration)
}
