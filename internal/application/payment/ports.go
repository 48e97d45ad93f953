package payment

import (
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

const paymentService = "payment-service"

// Gateways is the read side of the gateway registry.
type Gateways interface {
	Resolve(method string) (payment.Gateway, error)
	Lookup(name string) (payment.Gateway, bool)
}

var _ Gateways = (*payment.Registry)(nil)
