// Package monitor checks host request bodies against JSON Schema contracts
// before they reach the plugin manager.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// PaymentRequestSchema is the contract of every payment hook request. Amounts
// are decimal strings in major units.
const PaymentRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "PaymentRequest",
	"type": "object",
	"properties": {
		"token":       { "type": "string", "minLength": 1 },
		"amount":      { "type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?$" },
		"currency":    { "type": "string", "pattern": "^[A-Za-z]{3}$" },
		"customer_id": { "type": "string" }
	},
	"required": ["token"]
}`

// InvoiceRequestSchema is the contract of the invoice send request.
const InvoiceRequestSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "InvoiceRequest",
	"type": "object",
	"properties": {
		"id":             { "type": "string", "minLength": 1 },
		"number":         { "type": "string" },
		"download_url":   { "type": "string", "format": "uri" },
		"order_id":       { "type": "string" },
		"customer_email": { "type": "string", "format": "email" },
		"staff_user_id":  { "type": "string" }
	},
	"required": ["id", "customer_email"]
}`

// ContractMonitor validates request bodies against one compiled schema.
type ContractMonitor struct {
	name   string
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles a schema given as JSON text.
func NewContractMonitor(name, schema string) (*ContractMonitor, error) {
	return compile(name, gojsonschema.NewStringLoader(schema))
}

// NewContractMonitorFromFile compiles the schema stored at schemaPath.
func NewContractMonitorFromFile(schemaPath string) (*ContractMonitor, error) {
	return compile(schemaPath, gojsonschema.NewReferenceLoader("file://"+schemaPath))
}

// MustContractMonitor is NewContractMonitor for schemas known at compile time.
func MustContractMonitor(name, schema string) *ContractMonitor {
	cm, err := NewContractMonitor(name, schema)
	if err != nil {
		panic(err)
	}
	return cm
}

func compile(name string, loader gojsonschema.JSONLoader) (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("error loading or compiling schema %s: %w", name, err)
	}
	return &ContractMonitor{name: name, schema: schema}, nil
}

// Name returns the contract name used in errors.
func (cm *ContractMonitor) Name() string { return cm.name }

// Validate returns true if requestBody satisfies the schema, or false and the
// list of violations. A body that is not JSON is reported through the error.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("error during validation: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return false, errors, nil
}

// FormatErrors joins validation errors into one message.
func FormatErrors(validationErrors []string) string {
	if len(validationErrors) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(validationErrors, "; ")
}
