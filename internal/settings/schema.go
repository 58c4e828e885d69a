// Package settings declares gateway configuration schemas and loads stored
// plugin configuration.
//
// A Schema is static data describing the fields a gateway plugin reads. Bind
// checks a stored mapping against the schema and produces the immutable
// payment.GatewayConfig; every declared field has to be present in the mapping.
package settings

import (
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/payment-gateways/internal/payment"
)

// FieldKind is the input type a host settings UI should render.
type FieldKind string

const (
	FieldSecret  FieldKind = "secret"
	FieldBoolean FieldKind = "boolean"
	FieldString  FieldKind = "string"
)

// Role says which part of GatewayConfig a field feeds.
type Role string

const (
	RoleParam       Role = "param"        // ConnectionParams[Field.Param]
	RoleAutoCapture Role = "auto_capture" // GatewayConfig.AutoCapture
	RoleCurrencies  Role = "currencies"   // GatewayConfig.SupportedCurrencies
)

// Field declares one configuration entry.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"type"`
	HelpText string    `json:"help_text"`
	Default  string    `json:"-"`
	Param    string    `json:"-"`
	Role     Role      `json:"-"`
}

// Values is a stored configuration mapping keyed by field name.
type Values map[string]string

// Schema is the ordered field list of one gateway plugin.
type Schema struct {
	Fields []Field
}

// Defaults returns the initial mapping a freshly installed plugin is stored with.
func (s Schema) Defaults() Values {
	out := make(Values, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.Default
	}
	return out
}

// Field looks a declaration up by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate reports the first declared field missing from values, or a value of
// the wrong shape.
func (s Schema) Validate(values Values) error {
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			return &payment.MissingFieldError{Field: f.Name}
		}
		if f.Kind == FieldBoolean {
			if _, err := parseBool(v); err != nil {
				return &payment.InvalidFieldError{Field: f.Name, Reason: err.Error()}
			}
		}
	}
	return nil
}

// Bind validates values and builds the GatewayConfig for gatewayName. Empty
// secrets are accepted here; the gateway client reports them on first use.
func (s Schema) Bind(gatewayName string, values Values, env payment.Environment, timeout time.Duration) (payment.GatewayConfig, error) {
	if err := s.Validate(values); err != nil {
		return payment.GatewayConfig{}, err
	}

	cfg := payment.GatewayConfig{
		GatewayName:      gatewayName,
		ConnectionParams: make(map[string]string),
		Environment:      env,
		Timeout:          timeout,
	}
	if cfg.Environment == "" {
		cfg.Environment = payment.EnvironmentSandbox
	}
	for _, f := range s.Fields {
		v := strings.TrimSpace(values[f.Name])
		switch f.Role {
		case RoleAutoCapture:
			cfg.AutoCapture, _ = parseBool(v)
		case RoleCurrencies:
			cfg.SupportedCurrencies = payment.ParseCurrencies(v)
		case RoleParam:
			key := f.Param
			if key == "" {
				key = f.Name
			}
			cfg.ConnectionParams[key] = v
		}
	}
	return cfg, nil
}

// parseBool treats an empty value as false.
func parseBool(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
