package httppresentation

import (
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	apporder "github.com/Zhima-Mochi/artisanmart/internal/application/order"
	apppayment "github.com/Zhima-Mochi/artisanmart/internal/application/payment"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	componentHTTPHandler = "http_server"
	headerUserID         = "X-User-ID"
	headerUserRole       = "X-User-Role"
	roleAdmin            = "admin"
	actorKey             = "actor"
	maxWebhookBody       = 1 << 20
)

// UseCases are the application entry points the HTTP surface exposes.
type UseCases struct {
	CreateOrder   application.UseCase[apporder.CreateOrderInput, *domorder.Order]
	CancelOrder   application.UseCase[apporder.CancelOrderInput, *domorder.Order]
	UpdateStatus  application.UseCase[apporder.UpdateStatusInput, *domorder.Order]
	GetOrder      application.UseCase[apporder.GetOrderInput, *domorder.Order]
	ListMyOrders  application.UseCase[string, []*domorder.Order]
	CreateIntent  application.UseCase[apppayment.CreateIntentInput, *apppayment.CreateIntentResult]
	Verify        application.UseCase[apppayment.VerifyPaymentInput, *apppayment.VerifyPaymentResult]
	Refund        application.UseCase[apppayment.RefundInput, *apppayment.RefundResult]
	Webhook       application.UseCase[apppayment.WebhookInput, *apppayment.WebhookResult]
	PaymentStatus application.UseCase[apppayment.PaymentStatusInput, *domorder.Order]
}

// Catalog lists the registered gateways and their methods.
type Catalog interface {
	Names() []string
	Methods() []payment.Method
}

type Handler struct {
	uc      UseCases
	catalog Catalog
	metrics http.Handler
	log     observability.Logger
	tel     observability.Observability
}

func NewHandler(uc UseCases, catalog Catalog, metrics http.Handler, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		uc:      uc,
		catalog: catalog,
		metrics: metrics,
		log:     tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:     tel,
	}
}

// Router wires every route behind Trace → Request Logger → Metrics → Access Log.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), withTrace(), withRequestLogger(h.log), withHTTPMetrics(h.tel.Metrics()), withAccessLog(h.log))

	r.GET("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	orders := r.Group("/orders", h.requireUser)
	{
		orders.POST("", h.handleCreateOrder)
		orders.GET("/mine", h.handleListMine)
		orders.GET("/:id", h.handleGetOrder)
		orders.PATCH("/:id/cancel", h.handleCancelOrder)
		orders.PATCH("/:id/status", h.handleUpdateStatus)
	}

	payments := r.Group("/payments")
	{
		payments.GET("/methods", h.handleMethods)
		payments.POST("/webhook", func(c *gin.Context) { h.handleWebhook(c, c.Query("gateway")) })
		payments.GET("/order/:id/status", h.requireUser, h.handlePaymentStatus)
		payments.POST("/create-order", h.requireUser, func(c *gin.Context) { h.handleCreateIntent(c, "") })
		payments.POST("/verify", h.requireUser, func(c *gin.Context) { h.handleVerify(c, "") })
		payments.POST("/refund", h.requireUser, func(c *gin.Context) { h.handleRefund(c, "") })
	}

	if h.catalog != nil {
		for _, name := range h.catalog.Names() {
			h.gatewayRoutes(payments.Group("/"+name), name)
		}
	}
	return r
}

func (h *Handler) gatewayRoutes(g *gin.RouterGroup, gateway string) {
	g.POST("/create-order", h.requireUser, func(c *gin.Context) { h.handleCreateIntent(c, gateway) })
	g.POST("/verify", h.requireUser, func(c *gin.Context) { h.handleVerify(c, gateway) })
	g.POST("/refund", h.requireUser, func(c *gin.Context) { h.handleRefund(c, gateway) })
	g.POST("/webhook", func(c *gin.Context) { h.handleWebhook(c, gateway) })
}

// requireUser trusts the identity headers set by the upstream auth layer.
func (h *Handler) requireUser(c *gin.Context) {
	id := c.GetHeader(headerUserID)
	if id == "" {
		writeError(c, http.StatusUnauthorized, "missing user identity")
		return
	}
	c.Set(actorKey, application.Actor{UserID: id, Admin: c.GetHeader(headerUserRole) == roleAdmin})
	c.Next()
}

func actorOf(c *gin.Context) application.Actor {
	a, _ := c.Get(actorKey)
	actor, _ := a.(application.Actor)
	return actor
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleCreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.uc.CreateOrder.Execute(c.Request.Context(), req.input(actorOf(c).UserID))
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) handleListMine(c *gin.Context) {
	orders, err := h.uc.ListMyOrders.Execute(c.Request.Context(), actorOf(c).UserID)
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ordersResponse{Orders: lo.Map(orders, func(o *domorder.Order, _ int) orderResponse {
		return toOrderResponse(o)
	})})
}

func (h *Handler) handleGetOrder(c *gin.Context) {
	o, err := h.uc.GetOrder.Execute(c.Request.Context(), apporder.GetOrderInput{
		OrderID: c.Param("id"),
		Actor:   actorOf(c),
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleCancelOrder(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	o, err := h.uc.CancelOrder.Execute(c.Request.Context(), apporder.CancelOrderInput{
		OrderID: c.Param("id"),
		BuyerID: actorOf(c).UserID,
		Note:    req.Note,
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleUpdateStatus(c *gin.Context) {
	actor := actorOf(c)
	if !actor.Admin {
		writeDomainError(c, h.log, domorder.ErrForbidden)
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := h.uc.UpdateStatus.Execute(c.Request.Context(), apporder.UpdateStatusInput{
		OrderID:  c.Param("id"),
		Actor:    actor,
		Status:   req.Status,
		Note:     req.Note,
		Tracking: req.Tracking,
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleMethods(c *gin.Context) {
	var methods []payment.Method
	if h.catalog != nil {
		methods = h.catalog.Methods()
	}
	c.JSON(http.StatusOK, methodsResponse{Methods: methods})
}

func (h *Handler) handleCreateIntent(c *gin.Context, gateway string) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		writeError(c, http.StatusBadRequest, "orderId is required")
		return
	}
	res, err := h.uc.CreateIntent.Execute(c.Request.Context(), apppayment.CreateIntentInput{
		OrderID: req.OrderID,
		BuyerID: actorOf(c).UserID,
		Gateway: gateway,
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toIntentResponse(res))
}

func (h *Handler) handleVerify(c *gin.Context, gateway string) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.uc.Verify.Execute(c.Request.Context(), apppayment.VerifyPaymentInput{
		BuyerID:       actorOf(c).UserID,
		CorrelationID: req.CorrelationID,
		PaymentID:     req.PaymentID,
		Signature:     req.Signature,
		Gateway:       gateway,
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, verifyResponse{
		OrderID:       res.Order.ID,
		PaymentStatus: res.Status,
		Status:        res.Order.Status,
		Applied:       res.Applied,
		Synthetic:     res.Synthetic,
	})
}

func (h *Handler) handleRefund(c *gin.Context, gateway string) {
	actor := actorOf(c)
	if !actor.Admin {
		writeDomainError(c, h.log, domorder.ErrForbidden)
		return
	}
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		writeError(c, http.StatusBadRequest, "orderId is required")
		return
	}
	res, err := h.uc.Refund.Execute(c.Request.Context(), apppayment.RefundInput{
		OrderID: req.OrderID,
		Actor:   actor,
		Amount:  req.Amount,
		Reason:  req.Reason,
		Gateway: gateway,
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, refundResponse{
		Order: toOrderResponse(res.Order),
		Refund: refundInfo{
			RefundID:  res.Refund.RefundID,
			Status:    res.Refund.Status,
			Amount:    res.Refund.Amount,
			Synthetic: res.Refund.Synthetic,
			Manual:    res.Refund.Manual,
		},
	})
}

// handleWebhook passes the raw body through untouched; signatures are computed over it.
func (h *Handler) handleWebhook(c *gin.Context, gateway string) {
	if gateway == "" {
		writeError(c, http.StatusBadRequest, "gateway is required")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable body")
		return
	}

	req := payment.WebhookRequest{Header: c.Request.Header.Clone(), Body: body}
	if mt, _, _ := mime.ParseMediaType(c.ContentType()); mt == "application/x-www-form-urlencoded" {
		form, perr := url.ParseQuery(string(body))
		if perr != nil {
			writeError(c, http.StatusBadRequest, "malformed form body")
			return
		}
		req.Form = form
	}

	res, err := h.uc.Webhook.Execute(c.Request.Context(), apppayment.WebhookInput{Gateway: gateway, Request: req})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, webhookResponse{Status: res.Outcome})
}

func (h *Handler) handlePaymentStatus(c *gin.Context) {
	o, err := h.uc.PaymentStatus.Execute(c.Request.Context(), apppayment.PaymentStatusInput{
		OrderID: c.Param("id"),
		Actor:   actorOf(c),
	})
	if err != nil {
		writeDomainError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, paymentStatusResponse{
		OrderID:       o.ID,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		CorrelationID: o.GatewayCorrelationID,
		AmountPaid:    o.AmountPaid,
		RefundAmount:  o.RefundAmount,
		PaidAt:        o.PaidAt,
		RefundedAt:    o.RefundedAt,
	})
}
