package httppresentation

import (
	"time"

	apporder "github.com/Zhima-Mochi/artisanmart/internal/application/order"
	apppayment "github.com/Zhima-Mochi/artisanmart/internal/application/payment"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/samber/lo"
)

type lineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items           []lineRequest     `json:"items"`
	ShippingAddress domorder.Address  `json:"shippingAddress"`
	BillingAddress  *domorder.Address `json:"billingAddress,omitempty"`
	PaymentMethod   string            `json:"paymentMethod"`
}

func (r createOrderRequest) input(buyerID string) apporder.CreateOrderInput {
	return apporder.CreateOrderInput{
		BuyerID: buyerID,
		Items: lo.Map(r.Items, func(l lineRequest, _ int) apporder.LineInput {
			return apporder.LineInput{ProductID: l.ProductID, Quantity: l.Quantity}
		}),
		ShippingAddress: r.ShippingAddress,
		BillingAddress:  r.BillingAddress,
		PaymentMethod:   r.PaymentMethod,
	}
}

type updateStatusRequest struct {
	Status   string             `json:"status"`
	Note     string             `json:"note"`
	Tracking *domorder.Tracking `json:"tracking,omitempty"`
}

type cancelRequest struct {
	Note string `json:"note"`
}

type createIntentRequest struct {
	OrderID string `json:"orderId"`
}

type verifyRequest struct {
	CorrelationID string `json:"correlationId"`
	PaymentID     string `json:"paymentId"`
	Signature     string `json:"signature"`
}

type refundRequest struct {
	OrderID string `json:"orderId"`
	Amount  *int64 `json:"amount,omitempty"`
	Reason  string `json:"reason"`
}

type orderResponse struct {
	ID                   string                  `json:"id"`
	OrderNumber          string                  `json:"orderNumber"`
	BuyerID              string                  `json:"buyerId"`
	Items                []domorder.Item         `json:"items"`
	Subtotal             int64                   `json:"subtotal"`
	ShippingCost         int64                   `json:"shippingCost"`
	Tax                  int64                   `json:"tax"`
	Total                int64                   `json:"total"`
	Currency             string                  `json:"currency"`
	ShippingAddress      domorder.Address        `json:"shippingAddress"`
	BillingAddress       *domorder.Address       `json:"billingAddress,omitempty"`
	PaymentMethod        string                  `json:"paymentMethod"`
	PaymentStatus        payment.Status          `json:"paymentStatus"`
	GatewayCorrelationID string                  `json:"gatewayCorrelationId,omitempty"`
	GatewayPaymentID     string                  `json:"gatewayPaymentId,omitempty"`
	AmountPaid           int64                   `json:"amountPaid"`
	Status               domorder.Status         `json:"status"`
	StatusHistory        []domorder.HistoryEntry `json:"statusHistory"`
	Tracking             *domorder.Tracking      `json:"tracking,omitempty"`
	PaidAt               *time.Time              `json:"paidAt,omitempty"`
	CancelledAt          *time.Time              `json:"cancelledAt,omitempty"`
	DeliveredAt          *time.Time              `json:"deliveredAt,omitempty"`
	RefundedAt           *time.Time              `json:"refundedAt,omitempty"`
	RefundAmount         int64                   `json:"refundAmount,omitempty"`
	RefundReason         string                  `json:"refundReason,omitempty"`
	CreatedAt            time.Time               `json:"createdAt"`
	UpdatedAt            time.Time               `json:"updatedAt"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		BuyerID:              o.BuyerID,
		Items:                o.Items,
		Subtotal:             o.Subtotal,
		ShippingCost:         o.ShippingCost,
		Tax:                  o.Tax,
		Total:                o.Total,
		Currency:             o.Currency,
		ShippingAddress:      o.ShippingAddress,
		BillingAddress:       o.BillingAddress,
		PaymentMethod:        o.PaymentMethod,
		PaymentStatus:        o.PaymentStatus,
		GatewayCorrelationID: o.GatewayCorrelationID,
		GatewayPaymentID:     o.GatewayPaymentID,
		AmountPaid:           o.AmountPaid,
		Status:               o.Status,
		StatusHistory:        o.StatusHistory,
		Tracking:             o.Tracking,
		PaidAt:               o.PaidAt,
		CancelledAt:          o.CancelledAt,
		DeliveredAt:          o.DeliveredAt,
		RefundedAt:           o.RefundedAt,
		RefundAmount:         o.RefundAmount,
		RefundReason:         o.RefundReason,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

type ordersResponse struct {
	Orders []orderResponse `json:"orders"`
}

type intentResponse struct {
	OrderID         string         `json:"orderId"`
	Gateway         string         `json:"gateway"`
	CorrelationID   string         `json:"correlationId"`
	RedirectOrToken string         `json:"redirectOrToken"`
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Status          payment.Status `json:"status"`
	Synthetic       bool           `json:"synthetic"`
	Existing        bool           `json:"existing"`
}

func toIntentResponse(r *apppayment.CreateIntentResult) intentResponse {
	return intentResponse{
		OrderID:         r.Order.ID,
		Gateway:         r.Gateway,
		CorrelationID:   r.Intent.CorrelationID,
		RedirectOrToken: r.Intent.RedirectOrToken,
		Amount:          r.Order.Total,
		Currency:        r.Order.Currency,
		Status:          r.Intent.Status,
		Synthetic:       r.Intent.Synthetic,
		Existing:        r.Existing,
	}
}

type verifyResponse struct {
	OrderID       string          `json:"orderId"`
	PaymentStatus payment.Status  `json:"paymentStatus"`
	Status        domorder.Status `json:"status"`
	Applied       bool            `json:"applied"`
	Synthetic     bool            `json:"synthetic"`
}

type refundResponse struct {
	Order  orderResponse `json:"order"`
	Refund refundInfo    `json:"refund"`
}

type refundInfo struct {
	RefundID  string         `json:"refundId"`
	Status    payment.Status `json:"status"`
	Amount    int64          `json:"amount"`
	Synthetic bool           `json:"synthetic"`
	Manual    bool           `json:"manual"`
}

type webhookResponse struct {
	Status apppayment.WebhookOutcome `json:"status"`
}

type paymentStatusResponse struct {
	OrderID       string          `json:"orderId"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus payment.Status  `json:"paymentStatus"`
	Status        domorder.Status `json:"status"`
	CorrelationID string          `json:"correlationId,omitempty"`
	AmountPaid    int64           `json:"amountPaid"`
	RefundAmount  int64           `json:"refundAmount,omitempty"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	RefundedAt    *time.Time      `json:"refundedAt,omitempty"`
}

type methodsResponse struct {
	Methods []payment.Method `json:"methods"`
}
