// Package invoice sends invoice-ready notifications through the plugin hooks
// and records who sent them.
package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourorg/payment-gateways/internal/events"
	"github.com/yourorg/payment-gateways/internal/notify"
)

// Invoice is the host's invoice as far as notifications are concerned.
type Invoice struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	URL           string `json:"download_url"`
	OrderID       string `json:"order_id,omitempty"`
	CustomerEmail string `json:"customer_email"`
}

// ErrNoRecipient is returned when the invoice's order has no customer e-mail.
var ErrNoRecipient = errors.New("invoice: no recipient email")

// Hooks is what Send needs from the plugin manager.
type Hooks interface {
	notify.Dispatcher
	InvoiceSent(ctx context.Context, inv Invoice, email string) error
}

// Sender wires invoice delivery to the hooks and the audit log.
type Sender struct {
	hooks Hooks
	log   events.Log
}

// NewSender creates a Sender.
func NewSender(hooks Hooks, log events.Log) *Sender {
	return &Sender{hooks: hooks, log: log}
}

// Payload is the notification body for inv.
func Payload(inv Invoice) map[string]any {
	return map[string]any{
		"id":           inv.ID,
		"number":       inv.Number,
		"download_url": inv.URL,
	}
}

// Send notifies the customer that inv is ready, runs the InvoiceSent hook and
// records an invoice_sent entry attributed to staffUserID.
func (s *Sender) Send(ctx context.Context, inv Invoice, staffUserID string) error {
	if inv.CustomerEmail == "" {
		return fmt.Errorf("%w: invoice %s", ErrNoRecipient, inv.ID)
	}

	s.hooks.Notify(ctx, notify.EventInvoiceReady, map[string]any{
		"invoice":         Payload(inv),
		"recipient_email": inv.CustomerEmail,
	})
	if err := s.hooks.InvoiceSent(ctx, inv, inv.CustomerEmail); err != nil {
		return fmt.Errorf("invoice: invoice_sent hook: %w", err)
	}

	_, err := s.log.Append(ctx, events.Entry{
		Type:    events.TypeInvoiceSent,
		Actor:   staffUserID,
		Subject: inv.ID,
		Payload: map[string]string{
			"number":          inv.Number,
			"recipient_email": inv.CustomerEmail,
		},
	})
	if err != nil {
		return fmt.Errorf("invoice: record event: %w", err)
	}
	return nil
}
