package order

import (
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

type OrderNumberGenerator interface {
	NewOrderNumber() string
}

// MethodResolver maps a buyer-chosen payment method to the gateway that settles it.
type MethodResolver interface {
	Resolve(method string) (payment.Gateway, error)
}
