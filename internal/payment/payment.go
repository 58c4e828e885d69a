// Package payment holds the provider-agnostic data contracts shared by every
// gateway adapter: the per-attempt PaymentData, the per-plugin GatewayConfig and
// the canonical GatewayResponse handed back to the host platform.
package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind labels the lifecycle stage that produced a GatewayResponse.
type Kind string

const (
	KindAuth    Kind = "auth"
	KindCapture Kind = "capture"
	KindConfirm Kind = "confirm"
	KindRefund  Kind = "refund"
	KindVoid    Kind = "void"
)

// Environment selects the provider's sandbox or live endpoint.
type Environment string

const (
	EnvironmentSandbox Environment = "sandbox"
	EnvironmentLive    Environment = "live"
)

// ParseEnvironment maps free-form mode strings ("test", "production", ...) to an Environment.
// Anything that is not clearly live resolves to the sandbox.
func ParseEnvironment(value string) Environment {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "live", "prod", "production":
		return EnvironmentLive
	default:
		return EnvironmentSandbox
	}
}

// DefaultTimeout bounds a single provider round-trip when the config does not set one.
const DefaultTimeout = 10 * time.Second

// Data describes a single payment attempt.
type Data struct {
	Token      string `json:"token"`       // Provider-side reference (checkout id, payment id)
	Amount     int64  `json:"amount"`      // Minor units of Currency
	Currency   string `json:"currency"`    // ISO 4217 code
	CustomerID string `json:"customer_id"` // Optional
}

// ErrInvalidData is returned by Data.Validate.
var ErrInvalidData = errors.New("invalid payment data")

// Validate checks the fields a given lifecycle stage depends on.
func (d Data) Validate(kind Kind) error {
	if strings.TrimSpace(d.Token) == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidData)
	}
	switch kind {
	case KindCapture, KindConfirm, KindRefund, KindVoid:
		if d.Amount <= 0 {
			return fmt.Errorf("%w: amount must be positive for %s", ErrInvalidData, kind)
		}
		if strings.TrimSpace(d.Currency) == "" {
			return fmt.Errorf("%w: currency is required for %s", ErrInvalidData, kind)
		}
	}
	return nil
}

// GatewayConfig is bound once per plugin instance from stored configuration.
type GatewayConfig struct {
	GatewayName         string
	AutoCapture         bool
	SupportedCurrencies []string
	ConnectionParams    map[string]string // Provider-specific credential fields
	Environment         Environment
	Timeout             time.Duration
}

// RequestTimeout returns the configured timeout, falling back to DefaultTimeout.
func (c GatewayConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Param returns a connection parameter, or "" when unset.
func (c GatewayConfig) Param(key string) string {
	if c.ConnectionParams == nil {
		return ""
	}
	return c.ConnectionParams[key]
}

// GatewayResponse is the canonical outcome of one operation call.
type GatewayResponse struct {
	IsSuccess      bool           `json:"is_success"`
	ActionRequired bool           `json:"action_required"`
	TransactionID  string         `json:"transaction_id"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Error          string         `json:"error,omitempty"`
	Kind           Kind           `json:"kind"`
	RawResponse    map[string]any `json:"raw_response,omitempty"`
	CustomerID     string         `json:"customer_id,omitempty"`
}

// Valid reports whether the response honours success ⇒ no further action.
func (r GatewayResponse) Valid() bool {
	return !(r.IsSuccess && r.ActionRequired)
}

// CreditCardInfo describes a stored card.
type CreditCardInfo struct {
	Brand    string `json:"brand"`
	Last4    string `json:"last_4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// CustomerSource is a payment method stored at the provider for a customer.
type CustomerSource struct {
	ID             string         `json:"id"`
	GatewayName    string         `json:"gateway"`
	CreditCardInfo CreditCardInfo `json:"credit_card_info"`
}
