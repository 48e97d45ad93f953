package order

import (
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

// OrderCreatedEvent is emitted once an order is persisted with its stock reserved.
type OrderCreatedEvent struct {
	OrderID     string
	OrderNumber string
	BuyerID     string
	Items       []Item
	Total       int64
	OccurredAt  time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Items:       append([]Item(nil), o.Items...),
		Total:       o.Total,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when an order reaches cancelled by any path.
type OrderCancelledEvent struct {
	OrderID       string
	Reason        string
	StockRestored bool
	OccurredAt    time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, reason string) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:       o.ID,
		Reason:        reason,
		StockRestored: o.StockRestored,
		OccurredAt:    time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted for every status move other than cancellation.
type OrderStatusChangedEvent struct {
	OrderID    string
	From       Status
	To         Status
	Note       string
	OccurredAt time.Time
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order, c Change) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:    o.ID,
		From:       c.FromStatus,
		To:         c.ToStatus,
		Note:       c.Note,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaymentUpdatedEvent is emitted when the canonical payment status advances.
type OrderPaymentUpdatedEvent struct {
	OrderID       string
	From          payment.Status
	To            payment.Status
	CorrelationID string
	OccurredAt    time.Time
}

func (OrderPaymentUpdatedEvent) EventName() string { return "order.payment_updated" }

func NewOrderPaymentUpdatedEvent(o *Order, c Change) OrderPaymentUpdatedEvent {
	return OrderPaymentUpdatedEvent{
		OrderID:       o.ID,
		From:          c.FromPayment,
		To:            c.ToPayment,
		CorrelationID: o.GatewayCorrelationID,
		OccurredAt:    time.Now().UTC(),
	}
}

// EventsFor returns the domain events a change implies.
func EventsFor(o *Order, c Change) []outbox.Event {
	var events []outbox.Event
	if c.FromPayment != c.ToPayment {
		events = append(events, NewOrderPaymentUpdatedEvent(o, c))
	}
	if c.FromStatus != c.ToStatus {
		if c.ToStatus == StatusCancelled {
			events = append(events, NewOrderCancelledEvent(o, c.Note))
		} else {
			events = append(events, NewOrderStatusChangedEvent(o, c))
		}
	}
	return events
}
