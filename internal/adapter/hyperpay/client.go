// Package hyperpay talks to HyperPay through the Open Payment Platform (OPP) REST API.
package hyperpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yourorg/payment-gateways/internal/adapter"
	"github.com/yourorg/payment-gateways/internal/payment"
)

const (
	GatewayName = "HyperPay"

	SandboxURL = "https://eu-test.oppwa.com"
	LiveURL    = "https://eu-prod.oppwa.com"

	ParamUserID   = "userId"
	ParamPassword = "password"
	ParamEntityID = "entityId"

	maxBodyBytes = 1 << 20
)

var paymentTypes = map[adapter.Operation]string{
	adapter.OpCapture: "CP",
	adapter.OpRefund:  "RF",
	adapter.OpReverse: "RV",
}

// Client implements adapter.Client for OPP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	params     map[string]string
}

var _ adapter.Client = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client built from the gateway timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another OPP host, mostly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient configures a client for cfg. It checks nothing and calls nothing;
// missing credentials are reported by the first request.
func NewClient(cfg payment.GatewayConfig, opts ...ClientOption) *Client {
	base := SandboxURL
	if cfg.Environment == payment.EnvironmentLive {
		base = LiveURL
	}
	params := make(map[string]string, 3)
	for _, k := range []string{ParamUserID, ParamPassword, ParamEntityID} {
		params[k] = cfg.Param(k)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		baseURL:    base,
		params:     params,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements adapter.Client.
func (c *Client) Name() string { return GatewayName }

// BaseURL reports the OPP host in use.
func (c *Client) BaseURL() string { return c.baseURL }

// Lookup fetches the payment attached to a checkout created upstream.
func (c *Client) Lookup(ctx context.Context, token string) (map[string]any, error) {
	auth, err := c.authentication()
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1/checkouts/%s/payment?%s", c.baseURL, url.PathEscape(token), auth.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("hyperpay: build lookup request: %w: %w", payment.ErrTransport, err)
	}
	return c.do(req)
}

// Execute sends a back-office payment (capture, refund or reversal) against data.Token.
func (c *Client) Execute(ctx context.Context, op adapter.Operation, data payment.Data) (map[string]any, error) {
	paymentType, ok := paymentTypes[op]
	if !ok {
		return nil, fmt.Errorf("hyperpay: operation %q: %w", op, payment.ErrUnsupported)
	}
	form, err := c.authentication()
	if err != nil {
		return nil, err
	}
	form.Set("paymentType", paymentType)
	form.Set("amount", payment.FormatAmount(data.Amount, data.Currency))
	form.Set("currency", strings.ToUpper(data.Currency))

	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(data.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("hyperpay: build %s request: %w: %w", op, payment.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// ListSources is not offered: OPP registrations are managed outside this layer.
func (c *Client) ListSources(context.Context, string) ([]payment.CustomerSource, error) {
	return nil, payment.ErrUnsupported
}

func (c *Client) authentication() (url.Values, error) {
	v := url.Values{}
	for _, k := range []string{ParamUserID, ParamPassword, ParamEntityID} {
		val := strings.TrimSpace(c.params[k])
		if val == "" {
			return nil, &payment.MissingFieldError{Field: "authentication." + k}
		}
		v.Set("authentication."+k, val)
	}
	return v, nil
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hyperpay: %s %s: %w: %w", req.Method, req.URL.Path, payment.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("hyperpay: read response: %w: %w", payment.ErrTransport, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, fmt.Errorf("hyperpay: unreadable response (HTTP %d): %w", resp.StatusCode, payment.ErrTransport)
	}
	if !hasResultCode(raw) && resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("hyperpay: HTTP %d without result code: %w", resp.StatusCode, payment.ErrTransport)
	}
	return raw, nil
}

func hasResultCode(raw map[string]any) bool {
	result, ok := raw["result"].(map[string]any)
	if !ok {
		return false
	}
	code, ok := result["code"].(string)
	return ok && code != ""
}
