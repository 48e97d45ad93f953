package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

// PaymentUpdate is a canonical payment observation from a webhook, a verify poll or a refund.
type PaymentUpdate struct {
	Status    payment.Status
	PaymentID string
	Amount    int64
	Source    string
	Reason    string
	At        time.Time
}

// ApplyPayment advances the payment state if, and only if, the update moves it forward.
// Repeated and stale updates return ErrIdempotentNoop and leave the order untouched.
func (o *Order) ApplyPayment(u PaymentUpdate) (Change, error) {
	if !u.Status.Valid() {
		return Change{}, Validation("unknown payment status %q", u.Status)
	}
	if !payment.CanAdvance(o.PaymentStatus, u.Status) {
		return Change{}, ErrIdempotentNoop
	}

	now := u.At.UTC()
	c := o.beginChange("payment."+string(u.Status), "")
	if u.PaymentID != "" && o.GatewayPaymentID == "" {
		o.GatewayPaymentID = u.PaymentID
	}

	switch u.Status {
	case payment.StatusProcessing:
		o.PaymentStatus = payment.StatusProcessing
		c.Note = withSource("payment authorized", u.Source)

	case payment.StatusPaid:
		o.PaymentStatus = payment.StatusPaid
		if o.PaidAt == nil {
			o.PaidAt = &now
		}
		o.AmountPaid = u.Amount
		if o.AmountPaid <= 0 {
			o.AmountPaid = o.Total
		}
		c.Note = withSource("payment captured", u.Source)
		switch o.Status {
		case StatusPlaced:
			o.Status = StatusConfirmed
			o.appendHistory(StatusConfirmed, c.Note, now)
		case StatusCancelled:
			c.Warning = "payment captured on cancelled order; manual refund required"
			o.appendHistory(StatusCancelled, c.Warning, now)
		}

	case payment.StatusFailed:
		o.PaymentStatus = payment.StatusFailed
		c.Note = withSource("payment failed", u.Source)
		if o.Status.CanTransitionTo(StatusCancelled) {
			c.RestoreStock = o.markCancelled(c.Note, now)
		}

	case payment.StatusRefunded:
		if u.Amount > 0 && u.Amount < o.AmountPaid {
			// No partially refunded state: the order stays paid and an operator reconciles.
			note := withSource(fmt.Sprintf("partial refund of %d reported", u.Amount), u.Source)
			if o.hasHistoryNote(note) {
				return Change{}, ErrIdempotentNoop
			}
			c.Note = note
			c.Warning = "partial refund reported by provider; manual reconciliation required"
			o.appendHistory(o.Status, note+"; manual reconciliation required", now)
			break
		}
		o.applyRefund(u.Amount, u.Reason, now)
		c.Note = withSource(fmt.Sprintf("refunded %d", o.RefundAmount), u.Source)
		o.appendHistory(StatusRefunded, c.Note, now)
	}

	o.touch(now)
	return o.finishChange(c), nil
}

func (o *Order) applyRefund(amount int64, reason string, now time.Time) {
	if amount <= 0 {
		amount = o.AmountPaid
	}
	o.PaymentStatus = payment.StatusRefunded
	o.Status = StatusRefunded
	if o.RefundedAt == nil {
		o.RefundedAt = &now
	}
	o.RefundAmount = amount
	if reason != "" {
		o.RefundReason = reason
	}
}

// RefundableAmount validates a requested refund against what was actually paid.
// A nil request means the full amount. Partial refunds are rejected because the order
// has no partially refunded state.
func (o *Order) RefundableAmount(requested *int64) (int64, error) {
	if o.PaymentStatus != payment.StatusPaid {
		return 0, Validation("order is not paid")
	}
	if o.GatewayCorrelationID == "" {
		return 0, Validation("order has no payment reference")
	}
	if requested == nil {
		return o.AmountPaid, nil
	}
	amount := *requested
	switch {
	case amount <= 0:
		return 0, Validation("refund amount must be greater than zero")
	case amount > o.AmountPaid:
		return 0, Validation("refund amount %d exceeds amount paid %d", amount, o.AmountPaid)
	case amount < o.AmountPaid:
		return 0, Validation("partial refunds are not supported: amount paid is %d", o.AmountPaid)
	}
	return amount, nil
}

func (o *Order) hasHistoryNote(prefix string) bool {
	for _, h := range o.StatusHistory {
		if strings.HasPrefix(h.Note, prefix) {
			return true
		}
	}
	return false
}

func withSource(note, source string) string {
	if source == "" {
		return note
	}
	return note + " via " + source
}
