// Package notify defines the fire-and-forget notification seam between the
// gateway layer and the host's delivery channels (e-mail, webhooks).
package notify

import (
	"context"

	"github.com/yourorg/payment-gateways/pkg/logger"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mock_dispatcher.go -package=mocks

// EventType names a notification.
type EventType string

const (
	EventInvoiceReady    EventType = "invoice_ready"
	EventPaymentFailed   EventType = "payment_failed"
	EventPaymentCaptured EventType = "payment_captured"
)

// Dispatcher fires an event. Delivery problems are the dispatcher's concern;
// callers never wait for or inspect an outcome.
type Dispatcher interface {
	Notify(ctx context.Context, event EventType, payload map[string]any)
}

// LogDispatcher writes every event to the shared logger.
type LogDispatcher struct{}

// Notify implements Dispatcher.
func (LogDispatcher) Notify(_ context.Context, event EventType, payload map[string]any) {
	fields := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		fields[k] = v
	}
	fields["event"] = string(event)
	logger.Info("notification dispatched", fields)
}

// Multi fans an event out to several dispatchers in order.
type Multi []Dispatcher

// Notify implements Dispatcher. Nil entries are skipped.
func (m Multi) Notify(ctx context.Context, event EventType, payload map[string]any) {
	for _, d := range m {
		if d != nil {
			d.Notify(ctx, event, payload)
		}
	}
}
