// Package mock provides an in-memory adapter.Client for tests and the demo server's mock mode.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
)

// SuccessCode is the result code the default handlers answer with.
const SuccessCode = "000.000.000"

// Call records one invocation made against a MockClient.
type Call struct {
	Method     string
	Token      string
	Operation  adapter.Operation
	Data       payment.Data
	CustomerID string
}

// MockClient is a func-field test double. Unset funcs fall back to an
// approved payload, OPP-shaped unless the client was built with NewShapedClient.
type MockClient struct {
	GatewayName     string
	LookupFunc      func(ctx context.Context, token string) (map[string]any, error)
	ExecuteFunc     func(ctx context.Context, op adapter.Operation, data payment.Data) (map[string]any, error)
	ListSourcesFunc func(ctx context.Context, customerID string) ([]payment.CustomerSource, error)

	shape *normalizer.Config

	mu    sync.Mutex
	calls []Call
}

var _ adapter.Client = (*MockClient)(nil)

// NewMockClient creates a MockClient reporting name.
func NewMockClient(name string) *MockClient {
	return &MockClient{GatewayName: name}
}

// NewShapedClient creates a MockClient whose default payloads place the result
// code, id, amount and currency where cfg tells the normalizer to read them.
// The code is cfg's first success code.
func NewShapedClient(name string, cfg normalizer.Config) *MockClient {
	m := NewMockClient(name)
	m.shape = &cfg
	return m
}

// Name implements adapter.Client.
func (m *MockClient) Name() string {
	return m.GatewayName
}

// Lookup implements adapter.Client.
func (m *MockClient) Lookup(ctx context.Context, token string) (map[string]any, error) {
	m.record(Call{Method: "Lookup", Token: token})
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, token)
	}
	return m.approved(uuid.NewString(), "", ""), nil
}

// Execute implements adapter.Client.
func (m *MockClient) Execute(ctx context.Context, op adapter.Operation, data payment.Data) (map[string]any, error) {
	m.record(Call{Method: "Execute", Token: data.Token, Operation: op, Data: data})
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, op, data)
	}
	amount := ""
	if data.Amount > 0 {
		amount = payment.FormatAmount(data.Amount, data.Currency)
	}
	return m.approved(uuid.NewString(), amount, data.Currency), nil
}

// ListSources implements adapter.Client. Without ListSourcesFunc the mock
// behaves like a provider that stores no payment methods.
func (m *MockClient) ListSources(ctx context.Context, customerID string) ([]payment.CustomerSource, error) {
	m.record(Call{Method: "ListSources", CustomerID: customerID})
	if m.ListSourcesFunc != nil {
		return m.ListSourcesFunc(ctx, customerID)
	}
	return nil, payment.ErrUnsupported
}

// Calls returns a copy of the recorded invocations.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) approved(id, amount, currency string) map[string]any {
	if m.shape == nil {
		return Approved(id, amount, currency)
	}
	code := SuccessCode
	if len(m.shape.SuccessCodes) > 0 {
		code = m.shape.SuccessCodes[0]
	}
	raw := map[string]any{}
	setPath(raw, m.shape.CodePath, code)
	setPath(raw, m.shape.DescriptionPath, "accredited")
	setPath(raw, m.shape.IDField, id)
	setPath(raw, m.shape.AmountField, amount)
	setPath(raw, m.shape.CurrencyField, currency)
	return raw
}

// setPath stores value under a dotted path, creating nested objects. Empty
// paths and values are skipped.
func setPath(raw map[string]any, path, value string) {
	if path == "" || value == "" {
		return
	}
	keys := strings.Split(path, ".")
	current := raw
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

func (m *MockClient) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

// Approved builds an approved payload. Empty amount or currency are left out.
func Approved(id, amount, currency string) map[string]any {
	return Result(SuccessCode, "Request successfully processed in 'Merchant in Integrator Test Mode'", id, amount, currency)
}

// Result builds a payload carrying the given result code.
func Result(code, description, id, amount, currency string) map[string]any {
	raw := map[string]any{
		"result": map[string]any{"code": code, "description": description},
	}
	if id != "" {
		raw["id"] = id
	}
	if amount != "" {
		raw["amount"] = amount
	}
	if currency != "" {
		raw["currency"] = currency
	}
	return raw
}
