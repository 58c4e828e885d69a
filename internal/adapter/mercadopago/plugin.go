package mercadopago

import (
	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/plugin"
	"github.com/yourorg/payment-gateways/internal/settings"
)

const PluginID = "mercadopago"

// Payment statuses counted as success for every operation.
var SuccessStatuses = []string{"approved", "authorized", "in_process"}

var Schema = settings.Schema{Fields: []settings.Field{
	{
		Name:     "Access token",
		Label:    "Access token",
		Kind:     settings.FieldSecret,
		HelpText: "Mercado Pago private access token.",
		Role:     settings.RoleParam,
		Param:    ParamAccessToken,
	},
	{
		Name:     "Public key",
		Label:    "Public key",
		Kind:     settings.FieldString,
		HelpText: "Mercado Pago public key used by the storefront card form.",
		Role:     settings.RoleParam,
		Param:    ParamPublicKey,
	},
	{
		Name:     "Automatic payment capture",
		Label:    "Automatic payment capture",
		Kind:     settings.FieldBoolean,
		HelpText: "Determines if payments are captured right after authorization.",
		Default:  "false",
		Role:     settings.RoleAutoCapture,
	},
	{
		Name:     "Supported currencies",
		Label:    "Supported currencies",
		Kind:     settings.FieldString,
		HelpText: "Determines currencies supported by gateway. Please enter currency codes separated by a comma.",
		Role:     settings.RoleCurrencies,
	},
}}

// NormalizerConfig maps payment statuses onto the canonical response.
func NormalizerConfig() normalizer.Config {
	return normalizer.Config{
		CodePath:        "status",
		DescriptionPath: "status_detail",
		IDField:         "id",
		AmountField:     "transaction_amount",
		CurrencyField:   "currency_id",
		SuccessCodes:    SuccessStatuses,
		KindSuccessCodes: map[payment.Kind][]string{
			payment.KindVoid:   {"cancelled"},
			payment.KindRefund: {"refunded"},
		},
	}
}

// Definition describes the Mercado Pago plugin.
func Definition() plugin.Definition {
	return plugin.Definition{
		ID:           PluginID,
		Name:         GatewayName,
		Schema:       Schema,
		Normalizer:   NormalizerConfig(),
		PublicParams: []string{ParamPublicKey},
		NewClient: func(cfg payment.GatewayConfig) adapter.Client {
			return NewClient(cfg)
		},
	}
}

// NewPlugin binds stored configuration into a Mercado Pago plugin.
func NewPlugin(stored settings.Configuration, opts plugin.Options) (*plugin.GatewayPlugin, error) {
	return plugin.New(Definition(), stored, opts)
}
