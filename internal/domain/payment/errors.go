package payment

import (
	"errors"
	"fmt"
)

var (
	ErrSignatureVerification = errors.New("payment: signature verification failed")
	ErrGateway               = errors.New("payment: gateway failure")
	ErrUnsupportedMethod     = errors.New("payment: unsupported payment method")
	ErrUnsupportedEvent      = errors.New("payment: unsupported event")
	ErrMalformedPayload      = errors.New("payment: malformed payload")
)

// GatewayError wraps a provider-side failure. Its message is safe to log, not to return to clients.
type GatewayError struct {
	Gateway string
	Op      string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment: %s %s: %v", e.Gateway, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// NewGatewayError builds a GatewayError for the given gateway operation.
func NewGatewayError(gateway, op string, err error) error {
	return &GatewayError{Gateway: gateway, Op: op, Err: err}
}
