package hyperpay

import (
	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/plugin"
	"github.com/yourorg/payment-gateways/internal/settings"
)

// PluginID is the configuration store key of the HyperPay plugin.
const PluginID = "hyperpay"

// SuccessCodes are the OPP result codes treated as success: processed
// transactions plus the review and pending families.
var SuccessCodes = []string{
	"000.000.000",
	"000.000.100",
	"000.100.110",
	"000.100.111",
	"000.100.112",
	"000.300.000",
	"000.300.100",
	"000.300.101",
	"000.300.102",
}

// Schema declares the stored configuration fields.
var Schema = settings.Schema{Fields: []settings.Field{
	{
		Name:     "User ID",
		Label:    "User ID",
		Kind:     settings.FieldSecret,
		HelpText: `HyperPay User ID (ending with "cc").`,
		Role:     settings.RoleParam,
		Param:    ParamUserID,
	},
	{
		Name:     "Password",
		Label:    "Password",
		Kind:     settings.FieldSecret,
		HelpText: "HyperPay Password.",
		Role:     settings.RoleParam,
		Param:    ParamPassword,
	},
	{
		Name:     "Entity ID",
		Label:    "Entity ID",
		Kind:     settings.FieldSecret,
		HelpText: `HyperPay Entity ID (ending with "ca").`,
		Role:     settings.RoleParam,
		Param:    ParamEntityID,
	},
	{
		Name:     "Automatic payment capture",
		Label:    "Automatic payment capture",
		Kind:     settings.FieldBoolean,
		HelpText: "Determines if payments are captured right after authorization.",
		Default:  "true",
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

// NormalizerConfig maps OPP payloads.
func NormalizerConfig() normalizer.Config {
	return normalizer.Config{
		CodePath:        "result.code",
		DescriptionPath: "result.description",
		IDField:         "id",
		AmountField:     "amount",
		CurrencyField:   "currency",
		SuccessCodes:    SuccessCodes,
	}
}

// Definition describes the HyperPay plugin. Only the entity id is public.
func Definition() plugin.Definition {
	return plugin.Definition{
		ID:           PluginID,
		Name:         GatewayName,
		Schema:       Schema,
		Normalizer:   NormalizerConfig(),
		PublicParams: []string{ParamEntityID},
		NewClient: func(cfg payment.GatewayConfig) adapter.Client {
			return NewClient(cfg)
		},
	}
}

// NewPlugin binds stored configuration into a HyperPay plugin.
func NewPlugin(stored settings.Configuration, opts plugin.Options) (*plugin.GatewayPlugin, error) {
	return plugin.New(Definition(), stored, opts)
}
