package httppresentation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/suite"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	apporder "github.com/Zhima-Mochi/artisanmart/internal/application/order"
	apppayment "github.com/Zhima-Mochi/artisanmart/internal/application/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/id"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/cod"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/paytm"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/razorpay"
	httppresentation "github.com/Zhima-Mochi/artisanmart/internal/presentation/http"
)

type handlerSuite struct {
	suite.Suite

	router   *gin.Engine
	products *memory.ProductStore
	buyer    string
}

func TestHandlerSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(handlerSuite))
}

func (s *handlerSuite) SetupTest() {
	s.products = memory.NewProductStore(
		inventory.Product{ID: "p1", SellerID: "s1", Name: "Hand-thrown mug", UnitPrice: 125, Stock: 5, Active: true},
		inventory.Product{ID: "p9", SellerID: "s1", Name: "Retired print", UnitPrice: 80, Stock: 3, Active: false},
	)
	repo := memory.NewOrderRepository()
	s.buyer = uuid.NewString()

	effects := application.Effects{
		Ledger: inventory.NewLedger(s.products),
		Audit:  memory.NewAuditSink(),
		IDs:    id.NewUUIDGenerator(),
		Clock:  application.SystemClock{},
		Inst:   application.NewInstrument(nil, "order-effects"),
	}
	registry := payment.NewRegistry(
		razorpay.New(razorpay.Config{KeyID: "rzp_key", KeySecret: "rzp_secret", WebhookSecret: "whsec", BaseURL: "http://127.0.0.1:1"}, nil),
		paytm.New(paytm.Config{}, nil),
		cod.New(),
	)

	create := apporder.NewCreateOrderUseCase(apporder.CreateDeps{
		Repo:     repo,
		Products: s.products,
		Carts:    memory.NewCartStore(),
		Methods:  registry,
		Pricing:  domorder.DefaultPricing(),
		IDs:      id.NewUUIDGenerator(),
		Numbers:  id.NewOrderNumberGenerator(),
		Effects:  effects,
	}, nil)
	s.T().Cleanup(create.Wait)

	uc := httppresentation.UseCases{
		CreateOrder:   create,
		CancelOrder:   apporder.NewCancelOrderUseCase(repo, effects, nil, nil),
		UpdateStatus:  apporder.NewUpdateStatusUseCase(repo, effects, nil, nil),
		GetOrder:      apporder.NewGetOrderUseCase(repo, nil),
		ListMyOrders:  apporder.NewListMyOrdersUseCase(repo, nil),
		CreateIntent:  apppayment.NewCreateIntentUseCase(repo, registry, effects, nil, nil),
		Verify:        apppayment.NewVerifyPaymentUseCase(repo, registry, effects, nil, nil),
		Refund:        apppayment.NewRefundUseCase(repo, registry, effects, nil, nil),
		Webhook:       apppayment.NewReconcileWebhookUseCase(repo, registry, effects, nil, nil),
		PaymentStatus: apppayment.NewPaymentStatusUseCase(repo, nil),
	}
	metrics := promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	s.router = httppresentation.NewHandler(uc, registry, metrics, nil).Router()
}

type call struct {
	method      string
	path        string
	body        any
	raw         []byte
	contentType string
	user        string
	admin       bool
}

func (s *handlerSuite) do(c call) *httptest.ResponseRecorder {
	s.T().Helper()
	payload := c.raw
	if c.body != nil {
		var err error
		payload, err = json.Marshal(c.body)
		s.Require().NoError(err)
	}
	req := httptest.NewRequestWithContext(context.Background(), c.method, c.path, bytes.NewReader(payload))
	switch {
	case c.contentType != "":
		req.Header.Set("Content-Type", c.contentType)
	case payload != nil:
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
	}
	if c.admin {
		req.Header.Set("X-User-Role", "admin")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *handlerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	s.T().Helper()
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *handlerSuite) orderBody(method string, qty int) map[string]any {
	return map[string]any{
		"items":           []map[string]any{{"productId": "p1", "quantity": qty}},
		"shippingAddress": map[string]any{"line1": "12 MG Road", "city": "Pune", "postalCode": "411001", "country": "IN"},
		"paymentMethod":   method,
	}
}

func (s *handlerSuite) placeOrder(method string) map[string]any {
	s.T().Helper()
	rec := s.do(call{method: http.MethodPost, path: "/orders", body: s.orderBody(method, 2), user: s.buyer})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return s.decode(rec)
}

func (s *handlerSuite) TestHealthAndMetrics() {
	rec := s.do(call{method: http.MethodGet, path: "/healthz"})
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get("X-Request-ID"))

	rec = s.do(call{method: http.MethodGet, path: "/metrics"})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *handlerSuite) TestOrdersRequireIdentity() {
	rec := s.do(call{method: http.MethodPost, path: "/orders", body: s.orderBody("cod", 1)})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("missing user identity", s.decode(rec)["error"])
}

func (s *handlerSuite) TestCreateOrder() {
	order := s.placeOrder("paytm-wallet")
	s.EqualValues(313, order["total"])
	s.Equal("placed", order["status"])
	s.Equal("pending", order["paymentStatus"])
	s.Equal(s.buyer, order["buyerId"])
}

func (s *handlerSuite) TestCreateOrder_Errors() {
	tests := []struct {
		name string
		c    call
		code int
	}{
		{"malformed json", call{raw: []byte("{"), user: s.buyer}, http.StatusBadRequest},
		{"unsupported method", call{body: s.orderBody("bitcoin", 1), user: s.buyer}, http.StatusBadRequest},
		{"insufficient stock", call{body: s.orderBody("cod", 6), user: s.buyer}, http.StatusConflict},
		{"inactive product", call{body: map[string]any{
			"items":           []map[string]any{{"productId": "p9", "quantity": 1}},
			"shippingAddress": map[string]any{"line1": "x", "city": "y", "postalCode": "1", "country": "IN"},
			"paymentMethod":   "cod",
		}, user: s.buyer}, http.StatusNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.c.method, tt.c.path = http.MethodPost, "/orders"
			rec := s.do(tt.c)
			s.Equal(tt.code, rec.Code, rec.Body.String())
			s.NotEmpty(s.decode(rec)["error"])
		})
	}
}

func (s *handlerSuite) TestOrderVisibilityAndLifecycle() {
	order := s.placeOrder("cod")
	path := "/orders/" + order["id"].(string)

	s.Equal(http.StatusOK, s.do(call{method: http.MethodGet, path: path, user: s.buyer}).Code)
	s.Equal(http.StatusNotFound, s.do(call{method: http.MethodGet, path: path, user: "stranger"}).Code)
	s.Equal(http.StatusOK, s.do(call{method: http.MethodGet, path: path, user: "ops", admin: true}).Code)

	rec := s.do(call{method: http.MethodGet, path: "/orders/mine", user: s.buyer})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(s.decode(rec)["orders"], 1)

	rec = s.do(call{method: http.MethodPatch, path: path + "/status", body: map[string]any{"status": "confirmed"}, user: s.buyer})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(call{method: http.MethodPatch, path: path + "/status", body: map[string]any{"status": "delivered"}, user: "ops", admin: true})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(call{method: http.MethodPatch, path: path + "/status", body: map[string]any{"status": "confirmed"}, user: "ops", admin: true})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("confirmed", s.decode(rec)["status"])

	rec = s.do(call{method: http.MethodPatch, path: path + "/cancel", user: s.buyer})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("cancelled", s.decode(rec)["status"])

	p, err := s.products.Get(context.Background(), "p1")
	s.Require().NoError(err)
	s.Equal(5, p.Stock)
}

func (s *handlerSuite) TestPaymentMethods() {
	rec := s.do(call{method: http.MethodGet, path: "/payments/methods"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Methods []payment.Method `json:"methods"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Contains(body.Methods, payment.Method{Method: "paytm-wallet", Gateway: "paytm", Synthetic: true})
	s.Contains(body.Methods, payment.Method{Method: "razorpay-card", Gateway: "razorpay"})
	s.Contains(body.Methods, payment.Method{Method: "cod", Gateway: "cod"})
}

func (s *handlerSuite) TestPaymentFlowThroughSyntheticGateway() {
	order := s.placeOrder("paytm-upi")
	orderID := order["id"].(string)
	number := order["orderNumber"].(string)

	rec := s.do(call{method: http.MethodPost, path: "/payments/razorpay/create-order", body: map[string]any{"orderId": orderID}, user: s.buyer})
	s.Equal(http.StatusBadRequest, rec.Code, "route gateway must match the order")

	rec = s.do(call{method: http.MethodPost, path: "/payments/paytm/create-order", body: map[string]any{"orderId": orderID}, user: s.buyer})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	intent := s.decode(rec)
	s.Equal(number, intent["correlationId"])
	s.Equal(true, intent["synthetic"])
	s.EqualValues(313, intent["amount"])
	s.Equal("synthetic-txn-token-"+number, intent["redirectOrToken"])

	rec = s.do(call{method: http.MethodPost, path: "/payments/paytm/create-order", body: map[string]any{"orderId": orderID}, user: s.buyer})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(intent["redirectOrToken"], s.decode(rec)["redirectOrToken"], "checkout retry gets the same txn token")

	webhook := []byte(`{"head":{},"body":{"orderId":"` + number + `","txnId":"T1","status":"TXN_SUCCESS","txnAmount":"313.00"}}`)
	rec = s.do(call{method: http.MethodPost, path: "/payments/paytm/webhook", raw: webhook})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("applied", s.decode(rec)["status"])

	rec = s.do(call{method: http.MethodPost, path: "/payments/webhook?gateway=paytm", raw: webhook})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("already_applied", s.decode(rec)["status"])

	rec = s.do(call{method: http.MethodGet, path: "/payments/order/" + orderID + "/status", user: s.buyer})
	s.Require().Equal(http.StatusOK, rec.Code)
	status := s.decode(rec)
	s.Equal("paid", status["paymentStatus"])
	s.Equal("confirmed", status["status"])

	rec = s.do(call{method: http.MethodPost, path: "/payments/refund", body: map[string]any{"orderId": orderID}, user: s.buyer})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/payments/paytm/refund", body: map[string]any{"orderId": orderID, "amount": 100}, user: "ops", admin: true})
	s.Equal(http.StatusBadRequest, rec.Code, "partial refunds are rejected")

	rec = s.do(call{method: http.MethodPost, path: "/payments/paytm/refund", body: map[string]any{"orderId": orderID, "reason": "damaged"}, user: "ops", admin: true})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	refund := s.decode(rec)
	s.Equal("refunded", refund["order"].(map[string]any)["status"])
	s.EqualValues(313, refund["refund"].(map[string]any)["amount"])
}

func (s *handlerSuite) TestWebhookRejections() {
	rec := s.do(call{method: http.MethodPost, path: "/payments/webhook", raw: []byte(`{}`)})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/payments/webhook?gateway=stripe", raw: []byte(`{}`)})
	s.Equal(http.StatusBadRequest, rec.Code)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":100}}}}`)
	rec = s.do(call{method: http.MethodPost, path: "/payments/razorpay/webhook", raw: body})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("signature verification failed", s.decode(rec)["error"])

	signed := razorpay.SignWebhook("whsec", body)
	req := httptest.NewRequest(http.MethodPost, "/payments/razorpay/webhook", bytes.NewReader(body))
	req.Header.Set(razorpay.SignatureHeader, signed)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code, "authentic event for an unknown order")

	rec = s.do(call{
		method:      http.MethodPost,
		path:        "/payments/paytm/webhook",
		raw:         []byte("ORDERID=ORD-X&STATUS=TXN_MYSTERY"),
		contentType: "application/x-www-form-urlencoded",
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("ignored", s.decode(rec)["status"])
}
