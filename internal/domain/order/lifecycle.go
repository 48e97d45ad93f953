package order

import (
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

// Change describes what a successful mutation did, for auditing and side effects.
type Change struct {
	Action      string
	FromStatus  Status
	ToStatus    Status
	FromPayment payment.Status
	ToPayment   payment.Status
	Note        string
	// RestoreStock is set on the one mutation that must return reserved stock.
	RestoreStock bool
	// Warning flags an accepted but anomalous change, e.g. a capture on a cancelled order.
	Warning string
}

func (o *Order) beginChange(action, note string) Change {
	return Change{
		Action:      action,
		FromStatus:  o.Status,
		ToStatus:    o.Status,
		FromPayment: o.PaymentStatus,
		ToPayment:   o.PaymentStatus,
		Note:        note,
	}
}

func (o *Order) finishChange(c Change) Change {
	c.ToStatus = o.Status
	c.ToPayment = o.PaymentStatus
	return c
}

// CancelByBuyer cancels an order still in an early status.
func (o *Order) CancelByBuyer(note string, now time.Time) (Change, error) {
	if !o.Status.BuyerCancellable() {
		return Change{}, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}
	if note == "" {
		note = "cancelled by buyer"
	}
	c := o.beginChange("order.cancel", note)
	c.RestoreStock = o.markCancelled(note, now)
	return o.finishChange(c), nil
}

// TransitionTo applies a privileged status move along the graph.
func (o *Order) TransitionTo(next Status, note string, tracking *Tracking, now time.Time) (Change, error) {
	if !next.Valid() {
		return Change{}, Validation("unknown status %q", next)
	}
	if !o.Status.CanTransitionTo(next) {
		return Change{}, &InvalidTransitionError{From: o.Status, To: next}
	}

	c := o.beginChange("order.status_update", note)
	if tracking != nil {
		t := *tracking
		o.Tracking = &t
	}

	switch next {
	case StatusCancelled:
		if note == "" {
			note = "cancelled"
		}
		c.RestoreStock = o.markCancelled(note, now)
		return o.finishChange(c), nil
	case StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
		// Cash is collected at the door.
		if o.IsCOD() && payment.CanAdvance(o.PaymentStatus, payment.StatusPaid) {
			o.PaymentStatus = payment.StatusPaid
			o.AmountPaid = o.Total
			if o.PaidAt == nil {
				o.PaidAt = &now
			}
		}
	}

	o.Status = next
	o.appendHistory(next, note, now)
	o.touch(now)
	return o.finishChange(c), nil
}

// AttachCorrelation sets the provider reference exactly once. token is what the client
// needs to complete checkout and is replayed on repeated intent requests; empty means the
// correlation id itself.
func (o *Order) AttachCorrelation(correlationID, token string, now time.Time) (Change, error) {
	switch {
	case correlationID == "":
		return Change{}, Validation("correlation id is required")
	case o.GatewayCorrelationID == correlationID:
		return Change{}, ErrIdempotentNoop
	case o.GatewayCorrelationID != "":
		return Change{}, ErrConflict
	}
	c := o.beginChange("payment.intent_created", "payment intent "+correlationID)
	o.GatewayCorrelationID = correlationID
	o.GatewayToken = token
	o.touch(now)
	return o.finishChange(c), nil
}

// markCancelled reports whether the caller now owns restoring the stock.
func (o *Order) markCancelled(note string, now time.Time) bool {
	o.Status = StatusCancelled
	if o.CancelledAt == nil {
		o.CancelledAt = &now
	}
	o.appendHistory(StatusCancelled, note, now)
	o.touch(now)
	if o.StockRestored {
		return false
	}
	o.StockRestored = true
	return true
}
