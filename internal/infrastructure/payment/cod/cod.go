package cod

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

const Name = "cod"

// Gateway settles cash on delivery. No provider is involved: payment is recorded when the
// order is delivered and refunds are paid out manually.
type Gateway struct{}

var _ payment.Gateway = Gateway{}

func New() Gateway { return Gateway{} }

func (Gateway) Name() string      { return Name }
func (Gateway) Methods() []string { return []string{"cod"} }
func (Gateway) Synthetic() bool   { return false }

func (Gateway) MapStatus(native string) (payment.Status, bool) {
	s, err := payment.ParseStatus(strings.ToLower(native))
	return s, err == nil
}

func (Gateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	id := "cod_" + req.OrderNumber
	return &payment.Intent{CorrelationID: id, RedirectOrToken: id, Status: payment.StatusPending}, nil
}

// Verify never confirms payment; cash is collected at delivery.
func (Gateway) Verify(_ context.Context, _ payment.VerifyRequest) (*payment.Verification, error) {
	return &payment.Verification{Status: payment.StatusPending}, nil
}

func (Gateway) Refund(_ context.Context, req payment.RefundRequest) (*payment.RefundConfirmation, error) {
	return &payment.RefundConfirmation{
		RefundID: "cod_refund_" + strings.TrimPrefix(req.CorrelationID, "cod_"),
		Status:   payment.StatusRefunded,
		Amount:   req.Amount,
		Manual:   true,
	}, nil
}

func (Gateway) ParseWebhook(_ context.Context, _ payment.WebhookRequest) (*payment.WebhookEvent, error) {
	return nil, payment.ErrUnsupportedEvent
}
