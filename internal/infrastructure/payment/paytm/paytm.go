package paytm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/transport"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/shopspring/decimal"
)

const (
	Name           = "paytm"
	ChecksumField  = "CHECKSUMHASH"
	defaultBaseURL = "https://securegw.paytm.in"
	defaultWebsite = "DEFAULT"
)

type Config struct {
	MerchantID  string
	MerchantKey string
	Website     string
	BaseURL     string
	HTTPClient  *http.Client
}

// Gateway talks to the Paytm payment gateway. Requests are {head:{signature}, body:{...}}
// with the signature computed over the serialized body. Amounts are decimal strings.
type Gateway struct {
	cfg       Config
	client    *transport.Client
	synthetic bool
}

var _ payment.Gateway = (*Gateway)(nil)

func New(cfg Config, tel observability.Observability) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Website == "" {
		cfg.Website = defaultWebsite
	}
	return &Gateway{
		cfg:       cfg,
		client:    transport.New(Name, cfg.BaseURL, tel, transport.WithHTTPClient(cfg.HTTPClient)),
		synthetic: cfg.MerchantID == "" || cfg.MerchantKey == "",
	}
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) Methods() []string {
	return []string{"paytm-wallet", "paytm-upi", "paytm-card"}
}

func (g *Gateway) Synthetic() bool { return g.synthetic }

var nativeStatus = map[string]payment.Status{
	"OPEN":           payment.StatusPending,
	"PENDING":        payment.StatusProcessing,
	"TXN_SUCCESS":    payment.StatusPaid,
	"TXN_FAILURE":    payment.StatusFailed,
	"REFUND_SUCCESS": payment.StatusRefunded,
}

var statusEvents = map[string]payment.EventType{
	"PENDING":        payment.EventPaymentAuthorized,
	"TXN_SUCCESS":    payment.EventPaymentCaptured,
	"TXN_FAILURE":    payment.EventPaymentFailed,
	"REFUND_SUCCESS": payment.EventRefundProcessed,
}

func (g *Gateway) MapStatus(native string) (payment.Status, bool) {
	s, ok := nativeStatus[strings.ToUpper(native)]
	return s, ok
}

type envelope struct {
	Head head `json:"head"`
	Body any  `json:"body"`
}

type head struct {
	Signature string `json:"signature,omitempty"`
}

type resultInfo struct {
	ResultStatus string `json:"resultStatus"`
	ResultCode   string `json:"resultCode,omitempty"`
	ResultMsg    string `json:"resultMsg,omitempty"`
}

type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// signed serializes body once so the signature covers exactly the bytes sent.
func (g *Gateway) signed(body any) (envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("json.Marshal: %w", err)
	}
	return envelope{Head: head{Signature: transport.SignHex(g.cfg.MerchantKey, raw)}, Body: json.RawMessage(raw)}, nil
}

type initiateBody struct {
	RequestType string `json:"requestType"`
	MID         string `json:"mid"`
	WebsiteName string `json:"websiteName"`
	OrderID     string `json:"orderId"`
	TxnAmount   money  `json:"txnAmount"`
	UserInfo    struct {
		CustID string `json:"custId"`
	} `json:"userInfo"`
}

type initiateResponse struct {
	Body struct {
		ResultInfo resultInfo `json:"resultInfo"`
		TxnToken   string     `json:"txnToken"`
	} `json:"body"`
}

// CreateIntent registers the order; Paytm uses the merchant order number as its reference.
func (g *Gateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if g.synthetic {
		return &payment.Intent{
			CorrelationID:   req.OrderNumber,
			RedirectOrToken: "synthetic-txn-token-" + req.OrderNumber,
			Status:          payment.StatusPending,
			Synthetic:       true,
		}, nil
	}

	body := initiateBody{
		RequestType: "Payment",
		MID:         g.cfg.MerchantID,
		WebsiteName: g.cfg.Website,
		OrderID:     req.OrderNumber,
		TxnAmount:   money{Value: FormatAmount(req.Amount), Currency: req.Currency},
	}
	body.UserInfo.CustID = req.BuyerID

	env, err := g.signed(body)
	if err != nil {
		return nil, payment.NewGatewayError(Name, "create_intent", err)
	}

	q := url.Values{"mid": {g.cfg.MerchantID}, "orderId": {req.OrderNumber}}
	var resp initiateResponse
	if err := g.client.DoJSON(ctx, http.MethodPost, "/theia/api/v1/initiateTransaction?"+q.Encode(), "transaction.initiate", env, &resp); err != nil {
		return nil, payment.NewGatewayError(Name, "create_intent", err)
	}
	if resp.Body.ResultInfo.ResultStatus != "S" || resp.Body.TxnToken == "" {
		return nil, payment.NewGatewayError(Name, "create_intent", fmt.Errorf("initiate rejected: %s", resp.Body.ResultInfo.ResultMsg))
	}
	return &payment.Intent{CorrelationID: req.OrderNumber, RedirectOrToken: resp.Body.TxnToken, Status: payment.StatusPending}, nil
}

type statusBody struct {
	MID     string `json:"mid"`
	OrderID string `json:"orderId"`
}

type statusResponse struct {
	Body struct {
		ResultInfo resultInfo `json:"resultInfo"`
		TxnID      string     `json:"txnId"`
		TxnAmount  string     `json:"txnAmount"`
	} `json:"body"`
}

func (g *Gateway) Verify(ctx context.Context, req payment.VerifyRequest) (*payment.Verification, error) {
	if g.synthetic {
		pid := req.PaymentID
		if pid == "" {
			pid = "synthetic-txn-" + req.CorrelationID
		}
		return &payment.Verification{Status: payment.StatusPaid, PaymentID: pid, Synthetic: true}, nil
	}

	env, err := g.signed(statusBody{MID: g.cfg.MerchantID, OrderID: req.CorrelationID})
	if err != nil {
		return nil, payment.NewGatewayError(Name, "verify", err)
	}
	var resp statusResponse
	if err := g.client.DoJSON(ctx, http.MethodPost, "/v3/order/status", "order.status", env, &resp); err != nil {
		return nil, payment.NewGatewayError(Name, "verify", err)
	}

	status, ok := g.MapStatus(resp.Body.ResultInfo.ResultStatus)
	if !ok {
		return nil, payment.NewGatewayError(Name, "verify", fmt.Errorf("unknown txn status %q", resp.Body.ResultInfo.ResultStatus))
	}
	amount, err := ParseAmount(resp.Body.TxnAmount)
	if err != nil {
		return nil, payment.NewGatewayError(Name, "verify", err)
	}
	return &payment.Verification{Status: status, PaymentID: resp.Body.TxnID, Amount: amount}, nil
}

type refundBody struct {
	MID          string `json:"mid"`
	TxnType      string `json:"txnType"`
	OrderID      string `json:"orderId"`
	TxnID        string `json:"txnId"`
	RefID        string `json:"refId"`
	RefundAmount string `json:"refundAmount"`
	Comments     string `json:"comments,omitempty"`
}

type refundResponse struct {
	Body struct {
		ResultInfo   resultInfo `json:"resultInfo"`
		RefundID     string     `json:"refundId"`
		RefundAmount string     `json:"refundAmount"`
	} `json:"body"`
}

func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.RefundConfirmation, error) {
	if g.synthetic {
		return &payment.RefundConfirmation{
			RefundID:  "synthetic-refund-" + req.CorrelationID,
			Status:    payment.StatusRefunded,
			Amount:    req.Amount,
			Synthetic: true,
		}, nil
	}

	env, err := g.signed(refundBody{
		MID:          g.cfg.MerchantID,
		TxnType:      "REFUND",
		OrderID:      req.CorrelationID,
		TxnID:        req.PaymentID,
		RefID:        "RF-" + req.CorrelationID,
		RefundAmount: FormatAmount(req.Amount),
		Comments:     req.Reason,
	})
	if err != nil {
		return nil, payment.NewGatewayError(Name, "refund", err)
	}
	var resp refundResponse
	if err := g.client.DoJSON(ctx, http.MethodPost, "/refund/apply", "refund.apply", env, &resp); err != nil {
		return nil, payment.NewGatewayError(Name, "refund", err)
	}
	if resp.Body.ResultInfo.ResultStatus == "TXN_FAILURE" {
		return nil, payment.NewGatewayError(Name, "refund", fmt.Errorf("refund rejected: %s", resp.Body.ResultInfo.ResultMsg))
	}
	return &payment.RefundConfirmation{RefundID: resp.Body.RefundID, Status: payment.StatusRefunded, Amount: req.Amount}, nil
}

type webhookEnvelope struct {
	Head head            `json:"head"`
	Body json.RawMessage `json:"body"`
}

type webhookBody struct {
	OrderID      string `json:"orderId"`
	TxnID        string `json:"txnId"`
	Status       string `json:"status"`
	TxnAmount    string `json:"txnAmount"`
	RefundAmount string `json:"refundAmount"`
}

// ParseWebhook accepts both the JSON server-to-server notification and the form-encoded
// browser redirect callback.
func (g *Gateway) ParseWebhook(ctx context.Context, req payment.WebhookRequest) (*payment.WebhookEvent, error) {
	_ = ctx
	if len(req.Form) > 0 {
		return g.parseForm(req.Form)
	}

	var env webhookEnvelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		if g.synthetic {
			return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
		}
		return nil, payment.ErrSignatureVerification
	}
	if !g.synthetic && !transport.VerifyHex(g.cfg.MerchantKey, env.Body, env.Head.Signature) {
		return nil, payment.ErrSignatureVerification
	}

	var body webhookBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	amount := body.TxnAmount
	if body.RefundAmount != "" {
		amount = body.RefundAmount
	}
	return g.event(body.OrderID, body.TxnID, body.Status, amount)
}

func (g *Gateway) parseForm(form url.Values) (*payment.WebhookEvent, error) {
	if !g.synthetic && !transport.VerifyHex(g.cfg.MerchantKey, []byte(CanonicalForm(form)), form.Get(ChecksumField)) {
		return nil, payment.ErrSignatureVerification
	}
	return g.event(form.Get("ORDERID"), form.Get("TXNID"), form.Get("STATUS"), form.Get("TXNAMOUNT"))
}

func (g *Gateway) event(orderID, txnID, status, amount string) (*payment.WebhookEvent, error) {
	eventType, ok := statusEvents[strings.ToUpper(status)]
	if !ok {
		return nil, fmt.Errorf("%w: status %q", payment.ErrUnsupportedEvent, status)
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing orderId", payment.ErrMalformedPayload)
	}
	units, err := ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedPayload, err)
	}
	canonical, _ := eventType.CanonicalStatus()
	return &payment.WebhookEvent{
		Gateway:        Name,
		Type:           eventType,
		CorrelationID:  orderID,
		OrderReference: orderID,
		ProviderStatus: status,
		Status:         canonical,
		PaymentID:      txnID,
		Amount:         units,
		Synthetic:      g.synthetic,
	}, nil
}

// CanonicalForm is the checksum input for redirect callbacks: k=v pairs sorted by key,
// joined by "|", excluding the checksum itself.
func CanonicalForm(form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		if k == ChecksumField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+form.Get(k))
	}
	return strings.Join(parts, "|")
}

// Sign computes the signature Paytm places in head.signature for a serialized body.
func Sign(merchantKey string, body []byte) string {
	return transport.SignHex(merchantKey, body)
}

// FormatAmount renders whole units as the two-decimal string Paytm expects.
func FormatAmount(units int64) string {
	return decimal.NewFromInt(units).StringFixed(2)
}

// ParseAmount converts a Paytm decimal amount to whole units. Empty means zero.
func ParseAmount(v string) (int64, error) {
	if strings.TrimSpace(v) == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", v, err)
	}
	return d.Round(0).IntPart(), nil
}
