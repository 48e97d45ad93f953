package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/transport"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
)

const (
	Name            = "razorpay"
	SignatureHeader = "X-Razorpay-Signature"
	defaultBaseURL  = "https://api.razorpay.com"
	syntheticPrefix = "order_synthetic_"
)

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	HTTPClient    *http.Client
}

// Gateway talks to the Razorpay Orders and Payments APIs. Amounts on the wire are in paise.
type Gateway struct {
	cfg       Config
	client    *transport.Client
	synthetic bool
}

var _ payment.Gateway = (*Gateway)(nil)

// New returns a live gateway, or a synthetic one when the key pair is absent.
func New(cfg Config, tel observability.Observability) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Gateway{
		cfg: cfg,
		client: transport.New(Name, cfg.BaseURL, tel,
			transport.WithHTTPClient(cfg.HTTPClient),
			transport.WithBasicAuth(cfg.KeyID, cfg.KeySecret),
		),
		synthetic: cfg.KeyID == "" || cfg.KeySecret == "",
	}
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) Methods() []string {
	return []string{"razorpay-card", "razorpay-upi", "razorpay-netbanking", "razorpay-wallet"}
}

func (g *Gateway) Synthetic() bool { return g.synthetic }

var nativeStatus = map[string]payment.Status{
	"created":    payment.StatusPending,
	"attempted":  payment.StatusProcessing,
	"authorized": payment.StatusProcessing,
	"captured":   payment.StatusPaid,
	"paid":       payment.StatusPaid,
	"failed":     payment.StatusFailed,
	"refunded":   payment.StatusRefunded,
	"processed":  payment.StatusRefunded,
}

func (g *Gateway) MapStatus(native string) (payment.Status, bool) {
	s, ok := nativeStatus[native]
	return s, ok
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

func (g *Gateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if g.synthetic {
		id := syntheticPrefix + req.OrderNumber
		return &payment.Intent{CorrelationID: id, RedirectOrToken: id, Status: payment.StatusPending, Synthetic: true}, nil
	}

	var resp orderResponse
	err := g.client.DoJSON(ctx, http.MethodPost, "/v1/orders", "orders.create", orderRequest{
		Amount:   toPaise(req.Amount),
		Currency: req.Currency,
		Receipt:  req.OrderNumber,
		Notes:    map[string]string{"order_id": req.OrderID, "order_number": req.OrderNumber},
	}, &resp)
	if err != nil {
		return nil, payment.NewGatewayError(Name, "create_intent", err)
	}
	if resp.ID == "" {
		return nil, payment.NewGatewayError(Name, "create_intent", errors.New("empty order id"))
	}

	status, ok := g.MapStatus(resp.Status)
	if !ok {
		status = payment.StatusPending
	}
	return &payment.Intent{CorrelationID: resp.ID, RedirectOrToken: resp.ID, Status: status}, nil
}

type paymentEntity struct {
	ID      string            `json:"id"`
	OrderID string            `json:"order_id"`
	Status  string            `json:"status"`
	Amount  int64             `json:"amount"`
	Notes   map[string]string `json:"notes"`
}

// Verify checks the checkout signature hex(HMAC(keySecret, orderId|paymentId)) and then
// confirms the payment with the API.
func (g *Gateway) Verify(ctx context.Context, req payment.VerifyRequest) (*payment.Verification, error) {
	if g.synthetic {
		pid := req.PaymentID
		if pid == "" {
			pid = "pay_synthetic_" + req.CorrelationID
		}
		return &payment.Verification{Status: payment.StatusPaid, PaymentID: pid, Synthetic: true}, nil
	}
	if req.PaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: payment id and signature are required", payment.ErrSignatureVerification)
	}
	if !transport.VerifyHex(g.cfg.KeySecret, []byte(req.CorrelationID+"|"+req.PaymentID), req.Signature) {
		return nil, payment.ErrSignatureVerification
	}

	var entity paymentEntity
	if err := g.client.DoJSON(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(req.PaymentID), "payments.fetch", nil, &entity); err != nil {
		return nil, payment.NewGatewayError(Name, "verify", err)
	}
	if entity.OrderID != req.CorrelationID {
		return nil, fmt.Errorf("%w: payment belongs to another order", payment.ErrSignatureVerification)
	}

	status, ok := g.MapStatus(entity.Status)
	if !ok {
		return nil, payment.NewGatewayError(Name, "verify", fmt.Errorf("unknown payment status %q", entity.Status))
	}
	return &payment.Verification{Status: status, PaymentID: entity.ID, Amount: fromPaise(entity.Amount)}, nil
}

type refundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundConfirmation, error) {
	if g.synthetic {
		return &payment.RefundConfirmation{
			RefundID:  "rfnd_synthetic_" + req.CorrelationID,
			Status:    payment.StatusRefunded,
			Amount:    req.Amount,
			Synthetic: true,
		}, nil
	}
	if req.PaymentID == "" {
		return nil, payment.NewGatewayError(Name, "refund", errors.New("payment id is required"))
	}

	var resp refundEntity
	path := "/v1/payments/" + url.PathEscape(req.PaymentID) + "/refund"
	err := g.client.DoJSON(ctx, http.MethodPost, path, "payments.refund", refundRequest{
		Amount: toPaise(req.Amount),
		Notes:  map[string]string{"reason": req.Reason},
	}, &resp)
	if err != nil {
		return nil, payment.NewGatewayError(Name, "refund", err)
	}
	if resp.Status == "failed" {
		return nil, payment.NewGatewayError(Name, "refund", fmt.Errorf("refund %s failed", resp.ID))
	}
	return &payment.RefundConfirmation{RefundID: resp.ID, Status: payment.StatusRefunded, Amount: fromPaise(resp.Amount)}, nil
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

var supportedEvents = map[string]payment.EventType{
	"payment.captured":   payment.EventPaymentCaptured,
	"payment.authorized": payment.EventPaymentAuthorized,
	"payment.failed":     payment.EventPaymentFailed,
	"refund.processed":   payment.EventRefundProcessed,
}

// ParseWebhook authenticates X-Razorpay-Signature over the raw body before decoding anything.
func (g *Gateway) ParseWebhook(ctx context.Context, req payment.WebhookRequest) (*payment.WebhookEvent, error) {
	_ = ctx
	if !g.synthetic {
		if !transport.VerifyHex(g.cfg.WebhookSecret, req.Body, req.Header.Get(SignatureHeader)) {
			return nil, payment.ErrSignatureVerification
		}
	}

	var body webhookPayload
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	eventType, ok := supportedEvents[body.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", payment.ErrUnsupportedEvent, body.Event)
	}
	if body.Payload.Payment == nil {
		return nil, fmt.Errorf("%w: missing payment entity", payment.ErrMalformedPayload)
	}

	entity := body.Payload.Payment.Entity
	status, _ := eventType.CanonicalStatus()
	evt := &payment.WebhookEvent{
		Gateway:        Name,
		Type:           eventType,
		CorrelationID:  entity.OrderID,
		OrderReference: entity.Notes["order_number"],
		ProviderStatus: entity.Status,
		Status:         status,
		PaymentID:      entity.ID,
		Amount:         fromPaise(entity.Amount),
		Synthetic:      g.synthetic,
	}
	if eventType == payment.EventRefundProcessed && body.Payload.Refund != nil {
		evt.ProviderStatus = body.Payload.Refund.Entity.Status
		evt.Amount = fromPaise(body.Payload.Refund.Entity.Amount)
	}
	if evt.CorrelationID == "" {
		return nil, fmt.Errorf("%w: missing order id", payment.ErrMalformedPayload)
	}
	return evt, nil
}

// SignCheckout computes the signature Razorpay Checkout returns to the browser.
func SignCheckout(keySecret, orderID, paymentID string) string {
	return transport.SignHex(keySecret, []byte(orderID+"|"+paymentID))
}

// SignWebhook computes the X-Razorpay-Signature header value for body.
func SignWebhook(webhookSecret string, body []byte) string {
	return transport.SignHex(webhookSecret, body)
}

func toPaise(units int64) int64 { return units * 100 }

func fromPaise(paise int64) int64 { return paise / 100 }
