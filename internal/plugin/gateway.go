// Package plugin exposes gateway operations to the host platform as
// chain-of-responsibility hooks.
//
// Every hook takes the value accumulated by the plugins before it. An inactive
// plugin hands that value back untouched; an active one replaces or extends it.
// Manager folds a hook over the registered plugins in order.
package plugin

import (
	"context"
	"time"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/circuitbreaker"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/policy"
	"github.com/yourorg/payment-gateways/internal/processor"
	"github.com/yourorg/payment-gateways/internal/settings"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

// Definition is the static description of a gateway plugin.
type Definition struct {
	ID           string // Stable plugin id, also the configuration store key
	Name         string // Gateway name reported on responses
	Schema       settings.Schema
	Normalizer   normalizer.Config
	PublicParams []string // Connection params safe to hand to a storefront
	NewClient    func(cfg payment.GatewayConfig) adapter.Client
}

// Options are host-wide settings applied to every plugin.
type Options struct {
	Environment     payment.Environment
	Timeout         time.Duration
	DefaultCurrency string // Reported when a gateway declares no currencies
	Policy          *policy.CapturePolicy
	Breakers        *circuitbreaker.Registry
	// Client replaces the client built by Definition.NewClient.
	Client adapter.Client
}

// ConfigItem is one public configuration entry handed to storefronts.
type ConfigItem struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// GatewayPlugin binds one gateway Definition to its stored configuration.
// Configuration is bound once; a changed configuration needs a new plugin.
type GatewayPlugin struct {
	def             Definition
	active          bool
	config          payment.GatewayConfig
	defaultCurrency string
	processor       *processor.Processor
}

// New binds stored into a GatewayConfig and prepares the gateway client. It
// fails with payment.MissingFieldError when a declared field is absent. No
// network call is made.
func New(def Definition, stored settings.Configuration, opts Options) (*GatewayPlugin, error) {
	cfg, err := def.Schema.Bind(def.Name, stored.Values, opts.Environment, opts.Timeout)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = def.NewClient(cfg)
	}
	proc := processor.NewProcessor(
		client,
		normalizer.New(def.Normalizer),
		cfg,
		processor.WithPolicy(opts.Policy),
		processor.WithBreakers(opts.Breakers),
	)

	logger.Debug("gateway plugin bound", map[string]interface{}{
		"plugin":      def.ID,
		"active":      stored.Active,
		"environment": string(cfg.Environment),
	})
	return &GatewayPlugin{
		def:             def,
		active:          stored.Active,
		config:          cfg,
		defaultCurrency: opts.DefaultCurrency,
		processor:       proc,
	}, nil
}

// ID returns the plugin id.
func (p *GatewayPlugin) ID() string                    { return p.def.ID }
// Name returns the gateway name.
func (p *GatewayPlugin) Name() string                  { return p.def.Name }
// Active reports whether the stored configuration enables the plugin.
func (p *GatewayPlugin) Active() bool                  { return p.active }
// Config returns the bound gateway configuration.
func (p *GatewayPlugin) Config() payment.GatewayConfig { return p.config }

// ConfigurationFields returns the declared settings schema for host UIs.
func (p *GatewayPlugin) ConfigurationFields() []settings.Field {
	out := make([]settings.Field, len(p.def.Schema.Fields))
	copy(out, p.def.Schema.Fields)
	return out
}

// AuthorizePayment looks the checkout up without moving funds.
func (p *GatewayPlugin) AuthorizePayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error) {
	if !p.active {
		return previous, nil
	}
	return p.processor.Authorize(ctx, data)
}

// CapturePayment captures data.Amount of an authorization.
func (p *GatewayPlugin) CapturePayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error) {
	if !p.active {
		return previous, nil
	}
	return p.processor.Capture(ctx, data)
}

// ConfirmPayment behaves like CapturePayment.
func (p *GatewayPlugin) ConfirmPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error) {
	if !p.active {
		return previous, nil
	}
	return p.processor.Confirm(ctx, data)
}

// RefundPayment refunds data.Amount of a settled payment.
func (p *GatewayPlugin) RefundPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error) {
	if !p.active {
		return previous, nil
	}
	return p.processor.Refund(ctx, data)
}

// VoidPayment reverses an uncaptured authorization.
func (p *GatewayPlugin) VoidPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error) {
	if !p.active {
		return previous, nil
	}
	return p.processor.Void(ctx, data)
}

// ProcessPayment authorizes and, when the capture policy allows it, captures.
func (p *GatewayPlugin) ProcessPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error) {
	if !p.active {
		return previous, nil
	}
	return p.processor.ProcessPayment(ctx, data)
}

// ListPaymentSources appends this gateway's stored methods to previous.
func (p *GatewayPlugin) ListPaymentSources(ctx context.Context, customerID string, previous []payment.CustomerSource) ([]payment.CustomerSource, error) {
	if !p.active {
		return previous, nil
	}
	sources, err := p.processor.ListClientSources(ctx, customerID)
	if err != nil {
		return previous, err
	}
	out := make([]payment.CustomerSource, 0, len(previous)+len(sources))
	out = append(out, previous...)
	return append(out, sources...), nil
}

// GetSupportedCurrencies replaces previous with the configured currencies,
// falling back to the host default when none are configured.
func (p *GatewayPlugin) GetSupportedCurrencies(_ context.Context, previous []string) ([]string, error) {
	if !p.active {
		return previous, nil
	}
	if len(p.config.SupportedCurrencies) > 0 {
		out := make([]string, len(p.config.SupportedCurrencies))
		copy(out, p.config.SupportedCurrencies)
		return out, nil
	}
	if p.defaultCurrency == "" {
		return []string{}, nil
	}
	logger.Warn("gateway declares no currencies, using default", map[string]interface{}{
		"plugin":   p.def.ID,
		"currency": p.defaultCurrency,
	})
	return []string{p.defaultCurrency}, nil
}

// GetPaymentConfig returns the public connection params. Secrets never leave
// the plugin.
func (p *GatewayPlugin) GetPaymentConfig(_ context.Context, previous []ConfigItem) ([]ConfigItem, error) {
	if !p.active {
		return previous, nil
	}
	items := make([]ConfigItem, 0, len(p.def.PublicParams))
	for _, key := range p.def.PublicParams {
		items = append(items, ConfigItem{Field: key, Value: p.config.Param(key)})
	}
	return items, nil
}

// GetClientToken returns "" since neither supported gateway issues client-side tokens.
func (p *GatewayPlugin) GetClientToken(_ context.Context, previous string) (string, error) {
	if !p.active {
		return previous, nil
	}
	return "", nil
}
