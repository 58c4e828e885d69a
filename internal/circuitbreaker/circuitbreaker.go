// Package circuitbreaker guards gateway clients with a per-gateway sony/gobreaker breaker.
//
// Only transport failures count against a breaker. Provider rejections come back as
// ordinary payloads and configuration or unsupported-operation errors are reported
// as successes, so neither can open the circuit. When the circuit is open calls
// fail immediately with payment.ErrTransport; nothing is retried.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/metrics"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	defaultHalfOpenRequests = 2
)

// Settings tunes every breaker created by a Registry.
type Settings struct {
	FailureThreshold uint32        // Consecutive transport failures that open the circuit
	OpenTimeout      time.Duration // Time spent open before probing again
	HalfOpenRequests uint32        // Probes allowed while half-open
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: defaultFailureThreshold,
		OpenTimeout:      defaultOpenTimeout,
		HalfOpenRequests: defaultHalfOpenRequests,
	}
}

// Registry hands out one breaker per gateway name.
type Registry struct {
	mu       sync.Mutex
	settings Settings
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewRegistry creates a Registry. Zero fields in s take their defaults.
func NewRegistry(s Settings) *Registry {
	d := DefaultSettings()
	if s.FailureThreshold == 0 {
		s.FailureThreshold = d.FailureThreshold
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = d.OpenTimeout
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = d.HalfOpenRequests
	}
	return &Registry{settings: s, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Breaker returns the breaker for gateway, creating it on first use.
func (r *Registry) Breaker(gateway string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[gateway]; ok {
		return cb
	}
	threshold := r.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        gateway,
		MaxRequests: r.settings.HalfOpenRequests,
		Timeout:     r.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, payment.ErrTransport)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, stateValue(to))
			logger.Warn("circuit breaker state changed", map[string]interface{}{
				"gateway": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	metrics.SetBreakerState(gateway, stateValue(gobreaker.StateClosed))
	r.breakers[gateway] = cb
	return cb
}

// State reports the current state for gateway. Unknown gateways are closed.
func (r *Registry) State(gateway string) gobreaker.State {
	r.mu.Lock()
	cb, ok := r.breakers[gateway]
	r.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// Wrap returns a client whose calls pass through the breaker for c.Name().
func (r *Registry) Wrap(c adapter.Client) adapter.Client {
	return &guardedClient{next: c, cb: r.Breaker(c.Name())}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type guardedClient struct {
	next adapter.Client
	cb   *gobreaker.CircuitBreaker
}

func (g *guardedClient) Name() string { return g.next.Name() }

func (g *guardedClient) Lookup(ctx context.Context, token string) (map[string]any, error) {
	return g.run(func() (map[string]any, error) { return g.next.Lookup(ctx, token) })
}

func (g *guardedClient) Execute(ctx context.Context, op adapter.Operation, data payment.Data) (map[string]any, error) {
	return g.run(func() (map[string]any, error) { return g.next.Execute(ctx, op, data) })
}

func (g *guardedClient) ListSources(ctx context.Context, customerID string) ([]payment.CustomerSource, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.ListSources(ctx, customerID)
	})
	if err != nil {
		return nil, g.wrapRejection(err)
	}
	sources, _ := out.([]payment.CustomerSource)
	return sources, nil
}

func (g *guardedClient) run(call func() (map[string]any, error)) (map[string]any, error) {
	out, err := g.cb.Execute(func() (interface{}, error) { return call() })
	if err != nil {
		return nil, g.wrapRejection(err)
	}
	raw, _ := out.(map[string]any)
	return raw, nil
}

// wrapRejection turns breaker refusals into transport failures and passes other errors through.
func (g *guardedClient) wrapRejection(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuitbreaker: %s: %w: %w", g.next.Name(), payment.ErrTransport, err)
	}
	return err
}
