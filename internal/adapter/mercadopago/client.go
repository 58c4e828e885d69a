// Package mercadopago adapts the Mercado Pago Go SDK to adapter.Client.
//
// Mercado Pago identifies a payment by its numeric id, so the payment token
// handed to this adapter is that id in decimal form. SDK responses are
// re-encoded to JSON maps and normalized on their "status" field.
package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/customercard"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/refund"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/payment"
)

const (
	GatewayName = "Mercado Pago"

	ParamAccessToken = "accessToken"
	ParamPublicKey   = "publicKey"
)

// ErrInvalidPaymentID is returned when a token is not a Mercado Pago payment id.
var ErrInvalidPaymentID = errors.New("mercadopago: token is not a payment id")

// backend is the slice of the SDK this adapter drives. Results are returned
// untyped and re-encoded, so only the JSON shape of SDK responses matters.
type backend interface {
	GetPayment(ctx context.Context, id int) (any, error)
	CapturePayment(ctx context.Context, id int, amount float64) (any, error)
	CancelPayment(ctx context.Context, id int) (any, error)
	RefundPayment(ctx context.Context, id int, amount float64) (any, error)
	ListCards(ctx context.Context, customerID string) (any, error)
}

type sdkBackend struct {
	payments mppayment.Client
	refunds  refund.Client
	cards    customercard.Client
}

func newSDKBackend(accessToken string) (backend, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: sdk config: %w", err)
	}
	return &sdkBackend{
		payments: mppayment.NewClient(cfg),
		refunds:  refund.NewClient(cfg),
		cards:    customercard.NewClient(cfg),
	}, nil
}

func (b *sdkBackend) GetPayment(ctx context.Context, id int) (any, error) {
	return b.payments.Get(ctx, id)
}

func (b *sdkBackend) CapturePayment(ctx context.Context, id int, amount float64) (any, error) {
	return b.payments.CaptureAmount(ctx, id, amount)
}

func (b *sdkBackend) CancelPayment(ctx context.Context, id int) (any, error) {
	return b.payments.Cancel(ctx, id)
}

func (b *sdkBackend) RefundPayment(ctx context.Context, id int, amount float64) (any, error) {
	return b.refunds.CreatePartialRefund(ctx, id, amount)
}

func (b *sdkBackend) ListCards(ctx context.Context, customerID string) (any, error) {
	return b.cards.List(ctx, customerID)
}

// Client implements adapter.Client on top of the Mercado Pago SDK.
type Client struct {
	accessToken string

	once    sync.Once
	backend backend
	initErr error
}

var _ adapter.Client = (*Client)(nil)

// NewClient stores the credentials of cfg. The SDK is configured on the first
// call, which is also where a missing access token is reported.
func NewClient(cfg payment.GatewayConfig) *Client {
	return &Client{accessToken: strings.TrimSpace(cfg.Param(ParamAccessToken))}
}

func newClientWithBackend(b backend) *Client {
	c := &Client{accessToken: "test"}
	c.once.Do(func() { c.backend = b })
	return c
}

// Name implements adapter.Client.
func (c *Client) Name() string { return GatewayName }

func (c *Client) api() (backend, error) {
	c.once.Do(func() {
		if c.accessToken == "" {
			c.initErr = &payment.MissingFieldError{Field: ParamAccessToken}
			return
		}
		b, err := newSDKBackend(c.accessToken)
		if err != nil {
			c.initErr = &payment.InvalidFieldError{Field: ParamAccessToken, Reason: err.Error()}
			return
		}
		c.backend = b
	})
	return c.backend, c.initErr
}

// Lookup fetches the payment identified by token.
func (c *Client) Lookup(ctx context.Context, token string) (map[string]any, error) {
	api, err := c.api()
	if err != nil {
		return nil, err
	}
	id, err := paymentID(token)
	if err != nil {
		return nil, err
	}
	return toMap(api.GetPayment(ctx, id))
}

// Execute captures, refunds or cancels the payment identified by data.Token.
func (c *Client) Execute(ctx context.Context, op adapter.Operation, data payment.Data) (map[string]any, error) {
	api, err := c.api()
	if err != nil {
		return nil, err
	}
	id, err := paymentID(data.Token)
	if err != nil {
		return nil, err
	}
	amount := payment.ToMajor(data.Amount, data.Currency)

	switch op {
	case adapter.OpCapture:
		return toMap(api.CapturePayment(ctx, id, amount))
	case adapter.OpRefund:
		return toMap(api.RefundPayment(ctx, id, amount))
	case adapter.OpReverse:
		return toMap(api.CancelPayment(ctx, id))
	default:
		return nil, fmt.Errorf("mercadopago: operation %q: %w", op, payment.ErrUnsupported)
	}
}

// ListSources returns the cards stored for a Mercado Pago customer.
func (c *Client) ListSources(ctx context.Context, customerID string) ([]payment.CustomerSource, error) {
	api, err := c.api()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(customerID) == "" {
		return []payment.CustomerSource{}, nil
	}
	res, err := api.ListCards(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: list cards: %w: %w", payment.ErrTransport, err)
	}

	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: encode cards: %w: %w", payment.ErrTransport, err)
	}
	var cards []struct {
		ID              string `json:"id"`
		LastFourDigits  string `json:"last_four_digits"`
		ExpirationMonth int    `json:"expiration_month"`
		ExpirationYear  int    `json:"expiration_year"`
		PaymentMethod   struct {
			ID string `json:"id"`
		} `json:"payment_method"`
	}
	if err := json.Unmarshal(body, &cards); err != nil {
		return nil, fmt.Errorf("mercadopago: decode cards: %w: %w", payment.ErrTransport, err)
	}

	sources := make([]payment.CustomerSource, 0, len(cards))
	for _, card := range cards {
		sources = append(sources, payment.CustomerSource{
			ID:          card.ID,
			GatewayName: GatewayName,
			CreditCardInfo: payment.CreditCardInfo{
				Brand:    card.PaymentMethod.ID,
				Last4:    card.LastFourDigits,
				ExpMonth: card.ExpirationMonth,
				ExpYear:  card.ExpirationYear,
			},
		})
	}
	return sources, nil
}

func paymentID(token string) (int, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPaymentID, token)
	}
	return int(id), nil
}

// toMap re-encodes an SDK response. SDK errors cover both network failures
// and non-2xx answers; both count as transport failures here.
func toMap(res any, err error) (map[string]any, error) {
	if err != nil {
		return nil, fmt.Errorf("mercadopago: %w: %w", payment.ErrTransport, err)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: encode response: %w: %w", payment.ErrTransport, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("mercadopago: empty response: %w", payment.ErrTransport)
	}
	return raw, nil
}
