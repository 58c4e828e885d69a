// Package reporting summarizes the payment audit log.
package reporting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yourorg/payment-gateways/internal/events"
	"github.com/yourorg/payment-gateways/internal/payment"
)

// Retrospective summarizes gateway activity over a window of audit entries.
type Retrospective struct {
	TotalOperations    int              `json:"total_operations"`
	Successful         int              `json:"successful"`
	ActionRequired     int              `json:"action_required"`
	Failed             int              `json:"failed"` // Transport and data failures
	InvoicesSent       int              `json:"invoices_sent"`
	OperationsByKind   map[string]int   `json:"operations_by_kind"`
	GatewayUsage       map[string]int   `json:"gateway_usage"`
	CapturedByCurrency map[string]int64 `json:"captured_by_currency"` // Minor units, successful captures only
	RefundedByCurrency map[string]int64 `json:"refunded_by_currency"` // Minor units, successful refunds only
	ErrorBreakdown     map[string]int   `json:"error_breakdown"`
	DateFrom           time.Time        `json:"date_from"`
	DateTo             time.Time        `json:"date_to"`
	Duration           time.Duration    `json:"duration"`
}

func newRetrospective() *Retrospective {
	return &Retrospective{
		OperationsByKind:   make(map[string]int),
		GatewayUsage:       make(map[string]int),
		CapturedByCurrency: make(map[string]int64),
		RefundedByCurrency: make(map[string]int64),
		ErrorBreakdown:     make(map[string]int),
	}
}

// Reporter builds retrospectives.
type Reporter struct {
	log events.Log
}

// NewReporter creates a Reporter reading from log.
func NewReporter(log events.Log) *Reporter {
	return &Reporter{log: log}
}

// Build reads the whole audit log and summarizes the entries created in
// [from, to). Zero bounds are open.
func (r *Reporter) Build(ctx context.Context, from, to time.Time) (*Retrospective, error) {
	entries, err := r.log.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reporting: list audit log: %w", err)
	}
	var window []events.Entry
	for _, e := range entries {
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !e.CreatedAt.Before(to) {
			continue
		}
		window = append(window, e)
	}
	return Summarize(window), nil
}

// Summarize folds entries into a Retrospective. Entries need not be sorted.
func Summarize(entries []events.Entry) *Retrospective {
	report := newRetrospective()
	for i, e := range entries {
		if i == 0 || e.CreatedAt.Before(report.DateFrom) {
			report.DateFrom = e.CreatedAt
		}
		if e.CreatedAt.After(report.DateTo) {
			report.DateTo = e.CreatedAt
		}

		if e.Type == events.TypeInvoiceSent {
			report.InvoicesSent++
			continue
		}

		report.TotalOperations++
		report.GatewayUsage[e.Actor]++
		kind := e.Payload["kind"]
		if kind != "" {
			report.OperationsByKind[kind]++
		}

		success, _ := strconv.ParseBool(e.Payload["success"])
		actionRequired, _ := strconv.ParseBool(e.Payload["action_required"])
		switch {
		case success:
			report.Successful++
			amount, err := strconv.ParseInt(e.Payload["amount"], 10, 64)
			if err != nil {
				continue
			}
			switch payment.Kind(kind) {
			case payment.KindCapture:
				report.CapturedByCurrency[e.Payload["currency"]] += amount
			case payment.KindRefund:
				report.RefundedByCurrency[e.Payload["currency"]] += amount
			}
		case actionRequired:
			report.ActionRequired++
		default:
			report.Failed++
		}
		if msg := e.Payload["error"]; msg != "" {
			report.ErrorBreakdown[msg]++
		}
	}
	if len(entries) > 0 {
		report.Duration = report.DateTo.Sub(report.DateFrom)
	}
	return report
}
