package httppresentation

import (
	"context"
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/Zhima-Mochi/artisanmart/internal/observability/logctx"
	"github.com/gin-gonic/gin"
)

const msgProviderError = "payment provider error"

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// writeDomainError is the single place domain errors become HTTP statuses.
func writeDomainError(c *gin.Context, base observability.Logger, err error) {
	status, msg := classify(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		logctx.FromOr(c.Request.Context(), base).Error("request_failed",
			observability.F("route", routeOf(c)),
			observability.F("status", status),
			observability.Err(err),
		)
	}
	writeError(c, status, msg)
}

func classify(err error) (int, string) {
	var (
		validation *domorder.ValidationError
		shortfall  *inventory.InsufficientStockError
		transition *domorder.InvalidTransitionError
	)
	switch {
	case errors.Is(err, payment.ErrSignatureVerification):
		return http.StatusBadRequest, "signature verification failed"
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Msg
	case errors.Is(err, payment.ErrUnsupportedMethod):
		return http.StatusBadRequest, "unsupported payment method"
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return http.StatusBadRequest, "quantity must be greater than zero"
	case errors.Is(err, domorder.ErrForbidden):
		return http.StatusForbidden, "admin role required"
	case errors.Is(err, domorder.ErrNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, inventory.ErrProductNotFound), errors.Is(err, inventory.ErrProductInactive):
		return http.StatusNotFound, "product not found"
	case errors.As(err, &shortfall):
		return http.StatusConflict, shortfall.Error()
	case errors.As(err, &transition):
		return http.StatusConflict, transition.Error()
	case errors.Is(err, domorder.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, payment.ErrGateway):
		return http.StatusInternalServerError, msgProviderError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
