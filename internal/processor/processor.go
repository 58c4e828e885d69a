// Package processor implements the transaction lifecycle operations on top of an
// adapter.Client and a normalizer.Normalizer.
//
// Every operation answers with a canonical payment.GatewayResponse tagged with the
// lifecycle kind that produced it. Transport and provider problems never escape
// as errors; they become failure responses. The only error an operation returns
// is a configuration error, which is a setup defect the host has to fix.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/circuitbreaker"
	"github.com/yourorg/payment-gateways/internal/metrics"
	"github.com/yourorg/payment-gateways/internal/normalizer"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/policy"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

// Processor runs lifecycle operations for one configured gateway.
type Processor struct {
	client     adapter.Client
	normalizer *normalizer.Normalizer
	config     payment.GatewayConfig
	policy     *policy.CapturePolicy
	tracer     trace.Tracer
}

// Option customizes a Processor.
type Option func(*Processor)

// WithPolicy sets the capture policy consulted by ProcessPayment.
func WithPolicy(p *policy.CapturePolicy) Option {
	return func(proc *Processor) {
		if p != nil {
			proc.policy = p
		}
	}
}

// WithBreakers routes client calls through the breaker registered for the client's gateway.
func WithBreakers(r *circuitbreaker.Registry) Option {
	return func(proc *Processor) {
		if r != nil {
			proc.client = r.Wrap(proc.client)
		}
	}
}

// NewProcessor creates a Processor. It panics on a nil client or normalizer, both
// of which are programming errors.
func NewProcessor(client adapter.Client, norm *normalizer.Normalizer, cfg payment.GatewayConfig, opts ...Option) *Processor {
	if client == nil {
		panic("processor: client cannot be nil")
	}
	if norm == nil {
		panic("processor: normalizer cannot be nil")
	}
	p := &Processor{
		client:     client,
		normalizer: norm,
		config:     cfg,
		policy:     policy.Default(),
		tracer:     otel.Tracer("processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the bound gateway configuration.
func (p *Processor) Config() payment.GatewayConfig {
	return p.config
}

// Authorize looks up the checkout identified by data.Token. No funds move.
func (p *Processor) Authorize(ctx context.Context, data payment.Data) (payment.GatewayResponse, error) {
	return p.run(ctx, "Authorize", payment.KindAuth, data, func(ctx context.Context) (map[string]any, error) {
		return p.client.Lookup(ctx, data.Token)
	})
}

// Capture realizes a prior authorization for data.Amount.
func (p *Processor) Capture(ctx context.Context, data payment.Data) (payment.GatewayResponse, error) {
	return p.run(ctx, "Capture", payment.KindCapture, data, func(ctx context.Context) (map[string]any, error) {
		return p.client.Execute(ctx, adapter.OpCapture, data)
	})
}

// Confirm has no semantics of its own and delegates to Capture.
func (p *Processor) Confirm(ctx context.Context, data payment.Data) (payment.GatewayResponse, error) {
	return p.Capture(ctx, data)
}

// Refund returns data.Amount of a settled payment.
func (p *Processor) Refund(ctx context.Context, data payment.Data) (payment.GatewayResponse, error) {
	return p.run(ctx, "Refund", payment.KindRefund, data, func(ctx context.Context) (map[string]any, error) {
		return p.client.Execute(ctx, adapter.OpRefund, data)
	})
}

// Void reverses an authorization that has not been captured.
func (p *Processor) Void(ctx context.Context, data payment.Data) (payment.GatewayResponse, error) {
	return p.run(ctx, "Void", payment.KindVoid, data, func(ctx context.Context) (map[string]any, error) {
		return p.client.Execute(ctx, adapter.OpReverse, data)
	})
}

// ProcessPayment authorizes a fresh checkout and, when the capture policy allows
// it, captures straight away. Without a capture the authorization response is
// returned as is. That includes an authorization whose amount or currency is
// known neither from data nor from the provider.
func (p *Processor) ProcessPayment(ctx context.Context, data payment.Data) (payment.GatewayResponse, error) {
	auth, err := p.Authorize(ctx, data)
	if err != nil {
		return auth, err
	}

	capture, err := p.policy.ShouldCapture(policy.Input{
		AutoCapture: p.config.AutoCapture,
		AuthSuccess: auth.IsSuccess,
		Amount:      auth.Amount,
		Currency:    auth.Currency,
		Gateway:     p.config.GatewayName,
	})
	if err != nil {
		return payment.GatewayResponse{}, fmt.Errorf("processor: %s capture policy: %w: %w", p.config.GatewayName, payment.ErrConfiguration, err)
	}
	if !capture {
		return auth, nil
	}

	captureData := data
	if captureData.Amount == 0 {
		captureData.Amount = auth.Amount
	}
	if captureData.Currency == "" {
		captureData.Currency = auth.Currency
	}
	if captureData.Amount <= 0 || captureData.Currency == "" {
		logger.Warn("auto capture skipped, authorization carries no amount", map[string]interface{}{
			"gateway":  p.config.GatewayName,
			"token":    data.Token,
			"currency": captureData.Currency,
		})
		return auth, nil
	}
	logger.Info("auto capture after authorization", map[string]interface{}{
		"gateway": p.config.GatewayName,
		"token":   data.Token,
	})
	return p.Capture(ctx, captureData)
}

// ListClientSources returns the customer's stored payment methods. Providers
// without the feature, and transport failures, yield an empty list.
func (p *Processor) ListClientSources(ctx context.Context, customerID string) ([]payment.CustomerSource, error) {
	ctx, span := p.tracer.Start(ctx, "Processor.ListClientSources", trace.WithAttributes(
		attribute.String("gateway", p.config.GatewayName),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout())
	defer cancel()

	sources, err := p.client.ListSources(ctx, customerID)
	switch {
	case err == nil:
	case errors.Is(err, payment.ErrUnsupported):
		return []payment.CustomerSource{}, nil
	case errors.Is(err, payment.ErrConfiguration):
		span.RecordError(err)
		span.SetStatus(codes.Error, "configuration error")
		return nil, fmt.Errorf("processor: %s list sources: %w", p.config.GatewayName, err)
	default:
		span.RecordError(err)
		logger.Error(err, "listing customer sources failed", map[string]interface{}{
			"gateway": p.config.GatewayName,
		})
		return []payment.CustomerSource{}, nil
	}
	if sources == nil {
		sources = []payment.CustomerSource{}
	}
	return sources, nil
}

func (p *Processor) run(
	ctx context.Context,
	op string,
	kind payment.Kind,
	data payment.Data,
	call func(ctx context.Context) (map[string]any, error),
) (payment.GatewayResponse, error) {
	start := time.Now()
	gateway := p.config.GatewayName
	fields := map[string]interface{}{"gateway": gateway, "kind": string(kind), "token": data.Token}

	ctx, span := p.tracer.Start(ctx, "Processor."+op, trace.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("kind", string(kind)),
		attribute.String("token", data.Token),
	))
	defer span.End()

	if err := data.Validate(kind); err != nil {
		logger.Warn("rejected payment data", withError(fields, err))
		span.SetStatus(codes.Error, "invalid payment data")
		metrics.ObserveOperation(gateway, string(kind), metrics.OutcomeFailure, time.Since(start).Seconds())
		return p.normalizer.Failure(err, kind, data), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout())
	defer cancel()

	raw, err := call(callCtx)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, payment.ErrConfiguration) {
			span.SetStatus(codes.Error, "configuration error")
			logger.Error(err, "gateway configuration error", fields)
			metrics.ObserveOperation(gateway, string(kind), metrics.OutcomeConfigError, time.Since(start).Seconds())
			return payment.GatewayResponse{}, fmt.Errorf("processor: %s %s: %w", gateway, kind, err)
		}
		span.SetStatus(codes.Error, "gateway call failed")
		logger.Error(err, "gateway call failed", fields)
		metrics.ObserveOperation(gateway, string(kind), metrics.OutcomeFailure, time.Since(start).Seconds())
		return p.normalizer.Failure(err, kind, data), nil
	}

	resp := p.normalizer.Normalize(raw, kind, data)
	outcome := metrics.OutcomeSuccess
	if !resp.IsSuccess {
		outcome = metrics.OutcomeActionRequired
		span.SetStatus(codes.Error, resp.Error)
		logger.Warn("gateway reported failure", withError(fields, errors.New(resp.Error)))
	} else {
		logger.Info("gateway operation succeeded", map[string]interface{}{
			"gateway":        gateway,
			"kind":           string(kind),
			"token":          data.Token,
			"transaction_id": resp.TransactionID,
		})
	}
	span.SetAttributes(attribute.Bool("success", resp.IsSuccess), attribute.String("transaction_id", resp.TransactionID))
	metrics.ObserveOperation(gateway, string(kind), outcome, time.Since(start).Seconds())
	return resp, nil
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
