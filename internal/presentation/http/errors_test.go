package httppresentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", domorder.Validation("quantity must be positive"), http.StatusBadRequest, "quantity must be positive"},
		{"signature", fmt.Errorf("wrap: %w", payment.ErrSignatureVerification), http.StatusBadRequest, "signature verification failed"},
		{"forbidden", domorder.ErrForbidden, http.StatusForbidden, "admin role required"},
		{"missing order", fmt.Errorf("repo.Get: %w", domorder.ErrNotFound), http.StatusNotFound, "order not found"},
		{"inactive product", inventory.ErrProductInactive, http.StatusNotFound, "product not found"},
		{"transition", &domorder.InvalidTransitionError{From: domorder.StatusShipped, To: domorder.StatusCancelled}, http.StatusConflict, ""},
		{"shortfall", &inventory.InsufficientStockError{ProductID: "p1", Requested: 2, Available: 1}, http.StatusConflict, ""},
		{"gateway", payment.NewGatewayError("razorpay", "refund", errors.New("secret upstream detail")), http.StatusInternalServerError, msgProviderError},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := classify(tt.err)
			assert.Equal(t, tt.code, code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, msg)
			}
			assert.NotContains(t, msg, "secret upstream detail")
		})
	}
}
