// Package policy decides whether ProcessPayment follows a successful
// authorization with an immediate capture.
//
// Rules are govaluate expressions over the variables auto_capture, auth_success,
// amount (minor units), currency and gateway. A capture happens only when the
// gateway has auto capture enabled, the authorization succeeded, and every rule
// evaluates to true.
package policy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/payment-gateways/internal/payment"
)

// DefaultRule is used when no rules are configured.
const DefaultRule = "auto_capture && auth_success"

// Variables are the names a rule may reference.
var Variables = []string{"auto_capture", "auth_success", "amount", "currency", "gateway"}

// Rule is a named capture condition.
type Rule struct {
	ID         string
	Expression string
}

// Input is the evaluation context for one ProcessPayment call.
type Input struct {
	AutoCapture bool
	AuthSuccess bool
	Amount      int64
	Currency    string
	Gateway     string
}

type compiledRule struct {
	id   string
	expr *govaluate.EvaluableExpression
}

// CapturePolicy is immutable after construction and safe for concurrent use.
type CapturePolicy struct {
	rules []compiledRule
}

// NewCapturePolicy compiles rules. A rule that does not compile, or that
// references a name outside Variables, is a configuration error.
func NewCapturePolicy(rules []Rule) (*CapturePolicy, error) {
	if len(rules) == 0 {
		rules = []Rule{{ID: "default", Expression: DefaultRule}}
	}
	p := &CapturePolicy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Expression) == "" {
			return nil, &payment.InvalidFieldError{Field: "capture_rule." + r.ID, Reason: "empty expression"}
		}
		expr, err := govaluate.NewEvaluableExpression(r.Expression)
		if err != nil {
			return nil, &payment.InvalidFieldError{Field: "capture_rule." + r.ID, Reason: err.Error()}
		}
		for _, name := range expr.Vars() {
			if !slices.Contains(Variables, name) {
				return nil, &payment.InvalidFieldError{Field: "capture_rule." + r.ID, Reason: fmt.Sprintf("unknown variable %q", name)}
			}
		}
		p.rules = append(p.rules, compiledRule{id: r.ID, expr: expr})
	}
	return p, nil
}

// Default returns the policy built from DefaultRule.
func Default() *CapturePolicy {
	p, err := NewCapturePolicy(nil)
	if err != nil {
		panic(fmt.Sprintf("policy: default rule does not compile: %v", err))
	}
	return p
}

// RuleIDs lists the compiled rules in evaluation order.
func (p *CapturePolicy) RuleIDs() []string {
	ids := make([]string, len(p.rules))
	for i, r := range p.rules {
		ids[i] = r.id
	}
	return ids
}

// ShouldCapture evaluates the policy for in.
func (p *CapturePolicy) ShouldCapture(in Input) (bool, error) {
	if !in.AutoCapture || !in.AuthSuccess {
		return false, nil
	}
	params := map[string]interface{}{
		"auto_capture": in.AutoCapture,
		"auth_success": in.AuthSuccess,
		"amount":       float64(in.Amount),
		"currency":     in.Currency,
		"gateway":      in.Gateway,
	}
	for _, r := range p.rules {
		result, err := r.expr.Evaluate(params)
		if err != nil {
			return false, fmt.Errorf("policy: rule %q: %w", r.id, err)
		}
		ok, isBool := result.(bool)
		if !isBool {
			return false, fmt.Errorf("policy: rule %q returned %T, want bool", r.id, result)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
