package plugin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/adapter/mock"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/settings"
)

func testDefinition(id string) Definition {
	return Definition{
		ID:   id,
		Name: "Test Gateway",
		Schema: settings.Schema{Fields: []settings.Field{
			{Name: "API key", Label: "API key", Kind: settings.FieldSecret, Role: settings.RoleParam, Param: "apiKey"},
			{Name: "Merchant", Label: "Merchant", Kind: settings.FieldSecret, Role: settings.RoleParam, Param: "merchant"},
			{Name: "Automatic payment capture", Kind: settings.FieldBoolean, Role: settings.RoleAutoCapture, Default: "false"},
			{Name: "Supported currencies", Kind: settings.FieldString, Role: settings.RoleCurrencies},
		}},
		Normalizer: normalizer.Config{
			CodePath:        "result.code",
			DescriptionPath: "result.description",
			IDField:         "id",
			AmountField:     "amount",
			CurrencyField:   "currency",
			SuccessCodes:    []string{mock.SuccessCode},
		},
		PublicParams: []string{"merchant"},
		NewClient: func(cfg payment.GatewayConfig) adapter.Client {
			return mock.NewMockClient(cfg.GatewayName)
		},
	}
}

func storedConfig(active bool) settings.Configuration {
	return settings.Configuration{Active: active, Values: settings.Values{
		"API key":                   "secret-key",
		"Merchant":                  "merchant-1",
		"Automatic payment capture": "false",
		"Supported currencies":      "usd,sar",
	}}
}

func newTestPlugin(t *testing.T, active bool, client *mock.MockClient) *GatewayPlugin {
	t.Helper()
	opts := Options{Timeout: time.Second}
	if client != nil {
		opts.Client = client
	}
	p, err := New(testDefinition("test.gateway"), storedConfig(active), opts)
	require.NoError(t, err)
	return p
}

var data = payment.Data{Token: "chk_123", Amount: 5000, Currency: "USD"}

func TestNew_MissingKeyFailsFast(t *testing.T) {
	stored := storedConfig(true)
	delete(stored.Values, "Merchant")

	_, err := New(testDefinition("test.gateway"), stored, Options{})
	var missing *payment.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Merchant", missing.Field)
}

func TestNew_BindsConfig(t *testing.T) {
	p := newTestPlugin(t, true, nil)
	assert.Equal(t, "test.gateway", p.ID())
	assert.Equal(t, "Test Gateway", p.Config().GatewayName)
	assert.Equal(t, []string{"USD", "SAR"}, p.Config().SupportedCurrencies)
	assert.Equal(t, "secret-key", p.Config().Param("apiKey"))
	assert.Len(t, p.ConfigurationFields(), 4)
}

func TestInactivePluginPassesPreviousThrough(t *testing.T) {
	client := mock.NewMockClient("Test Gateway")
	p := newTestPlugin(t, false, client)
	ctx := context.Background()
	previous := payment.GatewayResponse{TransactionID: "from-earlier-plugin", Kind: payment.KindAuth}

	paymentHooks := map[string]func(context.Context, payment.Data, payment.GatewayResponse) (payment.GatewayResponse, error){
		"authorize": p.AuthorizePayment,
		"capture":   p.CapturePayment,
		"confirm":   p.ConfirmPayment,
		"refund":    p.RefundPayment,
		"void":      p.VoidPayment,
		"process":   p.ProcessPayment,
	}
	for name, hook := range paymentHooks {
		got, err := hook(ctx, data, previous)
		require.NoError(t, err, name)
		assert.Equal(t, previous, got, name)
	}

	prevSources := []payment.CustomerSource{{ID: "card_prev"}}
	sources, err := p.ListPaymentSources(ctx, "cus_1", prevSources)
	require.NoError(t, err)
	assert.Equal(t, prevSources, sources)

	currencies, err := p.GetSupportedCurrencies(ctx, []string{"EUR"})
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR"}, currencies)

	cfg, err := p.GetPaymentConfig(ctx, []ConfigItem{{Field: "x", Value: "y"}})
	require.NoError(t, err)
	assert.Equal(t, []ConfigItem{{Field: "x", Value: "y"}}, cfg)

	token, err := p.GetClientToken(ctx, "prev-token")
	require.NoError(t, err)
	assert.Equal(t, "prev-token", token)

	assert.Empty(t, client.Calls(), "inactive plugin must not reach the gateway")
}

func TestActivePluginRunsOperations(t *testing.T) {
	client := mock.NewMockClient("Test Gateway")
	p := newTestPlugin(t, true, client)
	ctx := context.Background()

	auth, err := p.AuthorizePayment(ctx, data, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.True(t, auth.IsSuccess)
	assert.Equal(t, payment.KindAuth, auth.Kind)

	refund, err := p.RefundPayment(ctx, data, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.Equal(t, payment.KindRefund, refund.Kind)

	void, err := p.VoidPayment(ctx, data, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.Equal(t, payment.KindVoid, void.Kind)

	confirm, err := p.ConfirmPayment(ctx, data, payment.GatewayResponse{})
	require.NoError(t, err)
	assert.Equal(t, payment.KindCapture, confirm.Kind)
}

func TestListPaymentSources_Appends(t *testing.T) {
	client := mock.NewMockClient("Test Gateway")
	client.ListSourcesFunc = func(ctx context.Context, customerID string) ([]payment.CustomerSource, error) {
		return []payment.CustomerSource{{ID: "card_new", GatewayName: "Test Gateway"}}, nil
	}
	p := newTestPlugin(t, true, client)

	previous := []payment.CustomerSource{{ID: "card_prev"}}
	got, err := p.ListPaymentSources(context.Background(), "cus_1", previous)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "card_prev", got[0].ID)
	assert.Equal(t, "card_new", got[1].ID)
	assert.Len(t, previous, 1, "previous slice is not mutated")
}

func TestGetSupportedCurrencies_DefaultCurrency(t *testing.T) {
	stored := storedConfig(true)
	stored.Values["Supported currencies"] = ""

	p, err := New(testDefinition("test.gateway"), stored, Options{DefaultCurrency: "SAR"})
	require.NoError(t, err)
	got, err := p.GetSupportedCurrencies(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"SAR"}, got)

	p, err = New(testDefinition("test.gateway"), stored, Options{})
	require.NoError(t, err)
	got, err = p.GetSupportedCurrencies(context.Background(), []string{"EUR"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetPaymentConfig_OnlyPublicParams(t *testing.T) {
	p := newTestPlugin(t, true, nil)
	got, err := p.GetPaymentConfig(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []ConfigItem{{Field: "merchant", Value: "merchant-1"}}, got)
}

func TestGetClientToken_Active(t *testing.T) {
	p := newTestPlugin(t, true, nil)
	token, err := p.GetClientToken(context.Background(), "prev")
	require.NoError(t, err)
	assert.Equal(t, "", token)
}
