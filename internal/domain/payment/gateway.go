package payment

import (
	"context"
	"net/http"
	"net/url"
)

// Gateway is the uniform contract every payment provider variant implements.
// Provider-native vocabulary never escapes an implementation: all statuses are canonical.
type Gateway interface {
	// Name is the stable identifier used in routes and configuration, e.g. "razorpay".
	Name() string
	// Methods lists the paymentMethod values this gateway settles, e.g. "razorpay-card".
	Methods() []string
	// Synthetic reports whether the gateway runs without provider credentials.
	Synthetic() bool

	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Verify(ctx context.Context, req VerifyRequest) (*Verification, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundConfirmation, error)
	MapStatus(native string) (Status, bool)
	// ParseWebhook authenticates and decodes a provider callback.
	ParseWebhook(ctx context.Context, req WebhookRequest) (*WebhookEvent, error)
}

type IntentRequest struct {
	OrderID     string
	OrderNumber string
	BuyerID     string
	Amount      int64 // whole currency units
	Currency    string
}

type Intent struct {
	CorrelationID string
	// RedirectOrToken is whatever the client needs to complete checkout: a provider order id,
	// a txn token or a redirect URL.
	RedirectOrToken string
	Status          Status
	Synthetic       bool
}

type VerifyRequest struct {
	CorrelationID string
	PaymentID     string
	Signature     string
}

type Verification struct {
	Status    Status
	PaymentID string
	Amount    int64
	Synthetic bool
}

type RefundRequest struct {
	CorrelationID string
	PaymentID     string
	Amount        int64
	Reason        string
}

type RefundConfirmation struct {
	RefundID  string
	Status    Status
	Amount    int64
	Synthetic bool
	// Manual is set when no provider call was possible and the refund is settled out of band.
	Manual bool
}

// WebhookRequest carries the raw callback exactly as received.
type WebhookRequest struct {
	Header http.Header
	Body   []byte
	Form   url.Values
}

type EventType string

const (
	EventPaymentCaptured   EventType = "payment.captured"
	EventPaymentAuthorized EventType = "payment.authorized"
	EventPaymentFailed     EventType = "payment.failed"
	EventRefundProcessed   EventType = "refund.processed"
)

// CanonicalStatus maps a supported event type to the payment status it asserts.
func (t EventType) CanonicalStatus() (Status, bool) {
	switch t {
	case EventPaymentCaptured:
		return StatusPaid, true
	case EventPaymentAuthorized:
		return StatusProcessing, true
	case EventPaymentFailed:
		return StatusFailed, true
	case EventRefundProcessed:
		return StatusRefunded, true
	default:
		return "", false
	}
}

// WebhookEvent is the authenticated, canonical form of a provider callback.
type WebhookEvent struct {
	Gateway        string
	Type           EventType
	CorrelationID  string
	OrderReference string
	ProviderStatus string
	Status         Status
	PaymentID      string
	Amount         int64
	Synthetic      bool
}
