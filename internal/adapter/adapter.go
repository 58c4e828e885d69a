// Package adapter defines the contract implemented by each payment gateway client.
// A client handles the provider-specific wire calls (serialization, credentials,
// endpoint selection) and hands the raw provider payload back untouched; turning
// that payload into a canonical payment.GatewayResponse is the normalizer's job.
package adapter

import (
	"context"

	"github.com/yourorg/payment-gateways/internal/payment"
)

// Operation is a back-office request issued against an existing provider reference.
type Operation string

const (
	OpCapture Operation = "capture"
	OpRefund  Operation = "refund"
	OpReverse Operation = "reverse"
)

// Client is implemented by every gateway adapter.
//
// Constructing a Client must not touch the network. Credential problems surface on
// the first call as payment.ErrConfiguration; network, timeout and unreadable
// response problems are wrapped in payment.ErrTransport.
type Client interface {
	// Name returns the gateway name (e.g., "HyperPay").
	Name() string

	// Lookup fetches the state of a checkout or payment created upstream.
	Lookup(ctx context.Context, token string) (map[string]any, error)

	// Execute issues a capture, refund or reversal against data.Token.
	Execute(ctx context.Context, op Operation, data payment.Data) (map[string]any, error)

	// ListSources returns stored payment methods, or payment.ErrUnsupported.
	ListSources(ctx context.Context, customerID string) ([]payment.CustomerSource, error)
}
