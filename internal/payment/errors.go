package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks missing or malformed gateway credentials and settings.
	// It is a setup defect and is allowed to propagate to the host.
	ErrConfiguration = errors.New("gateway configuration error")
	// ErrTransport marks network, timeout and unreadable-response failures.
	ErrTransport = errors.New("gateway transport failure")
	// ErrUnsupported is returned by adapters for operations the provider lacks.
	ErrUnsupported = errors.New("operation not supported by gateway")
)

// MissingFieldError names a required configuration field or credential that is absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("gateway configuration error: missing field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrConfiguration }

// InvalidFieldError names a configuration field whose value could not be parsed.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("gateway configuration error: invalid field %q: %s", e.Field, e.Reason)
}

func (e *InvalidFieldError) Unwrap() error { return ErrConfiguration }
