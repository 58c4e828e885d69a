package plugin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/payment-gateways/internal/events"
	"github.com/yourorg/payment-gateways/internal/invoice"
	"github.com/yourorg/payment-gateways/internal/metrics"
	"github.com/yourorg/payment-gateways/internal/notify"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

// ErrGatewayUnavailable is returned when no active plugin answers for a gateway.
var ErrGatewayUnavailable = errors.New("plugin: payment gateway is not available")

// Plugin is the part every registered plugin shares.
type Plugin interface {
	ID() string
	Active() bool
}

// PaymentHooks is implemented by gateway plugins.
type PaymentHooks interface {
	Plugin
	Name() string
	AuthorizePayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error)
	CapturePayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error)
	ConfirmPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error)
	RefundPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error)
	VoidPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error)
	ProcessPayment(ctx context.Context, data payment.Data, previous payment.GatewayResponse) (payment.GatewayResponse, error)
	ListPaymentSources(ctx context.Context, customerID string, previous []payment.CustomerSource) ([]payment.CustomerSource, error)
	GetSupportedCurrencies(ctx context.Context, previous []string) ([]string, error)
	GetPaymentConfig(ctx context.Context, previous []ConfigItem) ([]ConfigItem, error)
	GetClientToken(ctx context.Context, previous string) (string, error)
}

// Notifier is implemented by plugins that deliver notifications.
type Notifier interface {
	Plugin
	Notify(ctx context.Context, event notify.EventType, payload map[string]any)
}

// InvoiceHook is implemented by plugins that react to sent invoices.
type InvoiceHook interface {
	Plugin
	InvoiceSent(ctx context.Context, inv invoice.Invoice, email string) error
}

// PaymentGateway describes an active gateway to storefronts.
type PaymentGateway struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Config     []ConfigItem `json:"config"`
	Currencies []string     `json:"currencies"`
}

// Manager runs hooks across the registered plugins.
type Manager struct {
	mu         sync.RWMutex
	plugins    []Plugin
	log        events.Log
	dispatcher notify.Dispatcher
	tracer     trace.Tracer
}

// NewManager creates a Manager. log records payment hooks; dispatcher, when not
// nil, receives every notification in addition to Notifier plugins.
func NewManager(log events.Log, dispatcher notify.Dispatcher, plugins ...Plugin) *Manager {
	if log == nil {
		log = events.NewMemoryLog()
	}
	return &Manager{
		plugins:    append([]Plugin(nil), plugins...),
		log:        log,
		dispatcher: dispatcher,
		tracer:     otel.Tracer("plugin"),
	}
}

// Register appends p to the chain.
func (m *Manager) Register(p Plugin) {
	m.mu.Lock()
	m.plugins = append(m.plugins, p)
	m.mu.Unlock()
}

// Plugins returns the registered plugins in chain order.
func (m *Manager) Plugins() []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Plugin(nil), m.plugins...)
}

// fold threads previous through every plugin implementing C whose id matches
// gateway ("" matches all). Inactive plugins are skipped. handled reports
// whether any active plugin ran.
func fold[C Plugin, T any](m *Manager, hook, gateway string, previous T, call func(C, T) (T, error)) (T, bool, error) {
	handled := false
	for _, p := range m.Plugins() {
		c, ok := p.(C)
		if !ok || (gateway != "" && p.ID() != gateway) {
			continue
		}
		active := p.Active()
		metrics.ObserveHook(hook, p.ID(), active)
		if !active {
			continue
		}
		next, err := call(c, previous)
		if err != nil {
			return previous, handled, fmt.Errorf("plugin: %s %s: %w", p.ID(), hook, err)
		}
		previous = next
		handled = true
	}
	return previous, handled, nil
}

type paymentCall func(PaymentHooks, context.Context, payment.Data, payment.GatewayResponse) (payment.GatewayResponse, error)

func (m *Manager) runPayment(ctx context.Context, hook, eventType, gateway string, data payment.Data, call paymentCall) (payment.GatewayResponse, error) {
	ctx, span := m.tracer.Start(ctx, "Manager."+hook, trace.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("token", data.Token),
	))
	defer span.End()

	var actor string
	resp, handled, err := fold(m, hook, gateway, payment.GatewayResponse{}, func(p PaymentHooks, prev payment.GatewayResponse) (payment.GatewayResponse, error) {
		actor = p.ID()
		return call(p, ctx, data, prev)
	})
	if err != nil {
		span.RecordError(err)
		return resp, err
	}
	if !handled {
		return resp, fmt.Errorf("%w: %s", ErrGatewayUnavailable, gateway)
	}

	m.record(ctx, eventType, actor, data, resp)
	if !resp.IsSuccess {
		m.Notify(ctx, notify.EventPaymentFailed, map[string]any{
			"gateway": actor,
			"token":   data.Token,
			"kind":    string(resp.Kind),
			"error":   resp.Error,
		})
	} else if resp.Kind == payment.KindCapture {
		m.Notify(ctx, notify.EventPaymentCaptured, map[string]any{
			"gateway":        actor,
			"token":          data.Token,
			"transaction_id": resp.TransactionID,
		})
	}
	return resp, nil
}

// record appends the audit entry for a payment hook. A log failure is logged,
// never returned: the payment already happened.
func (m *Manager) record(ctx context.Context, eventType, actor string, data payment.Data, resp payment.GatewayResponse) {
	_, err := m.log.Append(ctx, events.Entry{
		Type:    eventType,
		Actor:   actor,
		Subject: data.Token,
		Payload: map[string]string{
			"kind":            string(resp.Kind),
			"success":         strconv.FormatBool(resp.IsSuccess),
			"action_required": strconv.FormatBool(resp.ActionRequired),
			"transaction_id":  resp.TransactionID,
			"amount":          strconv.FormatInt(resp.Amount, 10),
			"currency":        resp.Currency,
			"error":           resp.Error,
		},
	})
	if err != nil {
		logger.Error(err, "failed to record payment event", map[string]interface{}{
			"plugin": actor,
			"token":  data.Token,
			"type":   eventType,
		})
	}
}

// AuthorizePayment runs the authorize hook on gateway and records the outcome.
func (m *Manager) AuthorizePayment(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error) {
	return m.runPayment(ctx, "authorize_payment", events.TypePaymentAuthorized, gateway, data, PaymentHooks.AuthorizePayment)
}

// CapturePayment runs the capture hook on gateway and records the outcome.
func (m *Manager) CapturePayment(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error) {
	return m.runPayment(ctx, "capture_payment", events.TypePaymentCaptured, gateway, data, PaymentHooks.CapturePayment)
}

// ConfirmPayment runs the confirm hook on gateway and records the outcome.
func (m *Manager) ConfirmPayment(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error) {
	return m.runPayment(ctx, "confirm_payment", events.TypePaymentConfirmed, gateway, data, PaymentHooks.ConfirmPayment)
}

// RefundPayment runs the refund hook on gateway and records the outcome.
func (m *Manager) RefundPayment(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error) {
	return m.runPayment(ctx, "refund_payment", events.TypePaymentRefunded, gateway, data, PaymentHooks.RefundPayment)
}

// VoidPayment runs the void hook on gateway and records the outcome.
func (m *Manager) VoidPayment(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error) {
	return m.runPayment(ctx, "void_payment", events.TypePaymentVoided, gateway, data, PaymentHooks.VoidPayment)
}

// ProcessPayment runs the process hook on gateway and records the outcome.
func (m *Manager) ProcessPayment(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error) {
	return m.runPayment(ctx, "process_payment", events.TypePaymentProcessed, gateway, data, PaymentHooks.ProcessPayment)
}

// ListPaymentSources collects stored payment methods across matching gateways.
func (m *Manager) ListPaymentSources(ctx context.Context, gateway, customerID string) ([]payment.CustomerSource, error) {
	out, _, err := fold(m, "list_payment_sources", gateway, []payment.CustomerSource{}, func(p PaymentHooks, prev []payment.CustomerSource) ([]payment.CustomerSource, error) {
		return p.ListPaymentSources(ctx, customerID, prev)
	})
	return out, err
}

// GetSupportedCurrencies returns the currencies gateway accepts.
func (m *Manager) GetSupportedCurrencies(ctx context.Context, gateway string) ([]string, error) {
	out, _, err := fold(m, "get_supported_currencies", gateway, []string{}, func(p PaymentHooks, prev []string) ([]string, error) {
		return p.GetSupportedCurrencies(ctx, prev)
	})
	return out, err
}

// GetPaymentConfig returns the public connection params of gateway.
func (m *Manager) GetPaymentConfig(ctx context.Context, gateway string) ([]ConfigItem, error) {
	out, _, err := fold(m, "get_payment_config", gateway, []ConfigItem{}, func(p PaymentHooks, prev []ConfigItem) ([]ConfigItem, error) {
		return p.GetPaymentConfig(ctx, prev)
	})
	return out, err
}

// GetClientToken returns a client-side token for gateway, or "".
func (m *Manager) GetClientToken(ctx context.Context, gateway string) (string, error) {
	out, _, err := fold(m, "get_client_token", gateway, "", func(p PaymentHooks, prev string) (string, error) {
		return p.GetClientToken(ctx, prev)
	})
	return out, err
}

// ListPaymentGateways describes every active gateway. A non-empty currency
// keeps only gateways supporting it.
func (m *Manager) ListPaymentGateways(ctx context.Context, currency string) ([]PaymentGateway, error) {
	var out []PaymentGateway
	for _, p := range m.Plugins() {
		hooks, ok := p.(PaymentHooks)
		if !ok || !p.Active() {
			continue
		}
		currencies, err := m.GetSupportedCurrencies(ctx, p.ID())
		if err != nil {
			return nil, err
		}
		if currency != "" && !contains(currencies, currency) {
			continue
		}
		cfg, err := m.GetPaymentConfig(ctx, p.ID())
		if err != nil {
			return nil, err
		}
		out = append(out, PaymentGateway{ID: p.ID(), Name: hooks.Name(), Config: cfg, Currencies: currencies})
	}
	return out, nil
}

// Notify implements notify.Dispatcher: the event goes to the configured
// dispatcher and to every active Notifier plugin.
func (m *Manager) Notify(ctx context.Context, event notify.EventType, payload map[string]any) {
	if m.dispatcher != nil {
		m.dispatcher.Notify(ctx, event, payload)
	}
	_, _, _ = fold(m, "notify", "", struct{}{}, func(n Notifier, prev struct{}) (struct{}, error) {
		n.Notify(ctx, event, payload)
		return prev, nil
	})
}

// InvoiceSent runs the invoice hook on every active InvoiceHook plugin.
func (m *Manager) InvoiceSent(ctx context.Context, inv invoice.Invoice, email string) error {
	_, _, err := fold(m, "invoice_sent", "", struct{}{}, func(h InvoiceHook, prev struct{}) (struct{}, error) {
		return prev, h.InvoiceSent(ctx, inv, email)
	})
	return err
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
