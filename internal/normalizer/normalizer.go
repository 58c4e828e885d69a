// Package normalizer maps raw provider payloads into canonical GatewayResponses.
//
// Success is decided by membership of the provider's result code in a fixed
// allow-list. On the normalized path ActionRequired is always the negation of
// IsSuccess; this is fixed policy for every lifecycle stage and is not configurable.
package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yourorg/payment-gateways/internal/payment"
)

// Config describes where a provider keeps the fields the normalizer reads.
// Paths are dotted (e.g. "result.code").
type Config struct {
	CodePath        string
	DescriptionPath string
	IDField         string
	AmountField     string
	CurrencyField   string
	SuccessCodes    []string
	// KindSuccessCodes extends SuccessCodes for a single lifecycle stage
	// (e.g. "cancelled" only counts as success for a void).
	KindSuccessCodes map[payment.Kind][]string
}

// Normalizer is immutable after New and safe for concurrent use.
type Normalizer struct {
	codePath        []string
	descriptionPath []string
	idPath          []string
	amountPath      []string
	currencyPath    []string
	success         map[string]struct{}
	kindSuccess     map[payment.Kind]map[string]struct{}
}

// New builds a Normalizer from cfg.
func New(cfg Config) *Normalizer {
	n := &Normalizer{
		codePath:        splitPath(cfg.CodePath),
		descriptionPath: splitPath(cfg.DescriptionPath),
		idPath:          splitPath(cfg.IDField),
		amountPath:      splitPath(cfg.AmountField),
		currencyPath:    splitPath(cfg.CurrencyField),
		success:         toSet(cfg.SuccessCodes),
		kindSuccess:     make(map[payment.Kind]map[string]struct{}, len(cfg.KindSuccessCodes)),
	}
	for kind, codes := range cfg.KindSuccessCodes {
		n.kindSuccess[kind] = toSet(codes)
	}
	return n
}

// IsSuccessCode reports whether code counts as success for kind.
func (n *Normalizer) IsSuccessCode(kind payment.Kind, code string) bool {
	if _, ok := n.success[code]; ok {
		return true
	}
	_, ok := n.kindSuccess[kind][code]
	return ok
}

// Code extracts the provider result code from raw, or "" when absent.
func (n *Normalizer) Code(raw map[string]any) string {
	v, _ := lookup(raw, n.codePath)
	return stringValue(v)
}

// Normalize converts a provider payload into a GatewayResponse tagged with kind.
// Request values win over provider values; provider amount and currency are only
// used when the request left them empty.
func (n *Normalizer) Normalize(raw map[string]any, kind payment.Kind, info payment.Data) payment.GatewayResponse {
	code := n.Code(raw)
	success := code != "" && n.IsSuccessCode(kind, code)

	currency := info.Currency
	if currency == "" {
		v, _ := lookup(raw, n.currencyPath)
		currency = strings.ToUpper(stringValue(v))
	}

	amount := info.Amount
	if amount == 0 {
		if v, ok := lookup(raw, n.amountPath); ok {
			amount = amountValue(v, currency)
		}
	}

	id, _ := lookup(raw, n.idPath)

	resp := payment.GatewayResponse{
		IsSuccess:      success,
		ActionRequired: !success,
		TransactionID:  stringValue(id),
		Amount:         amount,
		Currency:       currency,
		Kind:           kind,
		RawResponse:    raw,
		CustomerID:     info.CustomerID,
	}
	if !success {
		resp.Error = n.describe(raw, code)
	}
	return resp
}

// Failure converts an operation error into a failure response. It never claims
// that further action is required and carries no provider payload.
func (n *Normalizer) Failure(err error, kind payment.Kind, info payment.Data) payment.GatewayResponse {
	return Failure(err, kind, info)
}

// Failure is the provider-independent form of Normalizer.Failure.
func Failure(err error, kind payment.Kind, info payment.Data) payment.GatewayResponse {
	msg := "unknown gateway error"
	if err != nil {
		msg = err.Error()
	}
	return payment.GatewayResponse{
		IsSuccess:      false,
		ActionRequired: false,
		TransactionID:  info.Token,
		Amount:         info.Amount,
		Currency:       info.Currency,
		Error:          msg,
		Kind:           kind,
		RawResponse:    map[string]any{},
		CustomerID:     info.CustomerID,
	}
}

func (n *Normalizer) describe(raw map[string]any, code string) string {
	if v, ok := lookup(raw, n.descriptionPath); ok {
		if desc := stringValue(v); desc != "" {
			if code != "" {
				return fmt.Sprintf("%s (%s)", desc, code)
			}
			return desc
		}
	}
	if code == "" {
		return "provider response carried no result code"
	}
	return fmt.Sprintf("provider returned result code %s", code)
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func lookup(raw map[string]any, path []string) (any, bool) {
	if raw == nil || len(path) == 0 {
		return nil, false
	}
	var current any = raw
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func amountValue(v any, currency string) int64 {
	switch t := v.(type) {
	case string:
		n, err := payment.ParseAmount(t, currency)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return payment.FromMajor(t, currency)
	case json.Number:
		n, err := payment.ParseAmount(t.String(), currency)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
