package audit

import (
	"context"
	"errors"
	"time"
)

// Entry is one append-only audit record of an order mutation.
type Entry struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	FromStatus    string    `json:"fromStatus"`
	ToStatus      string    `json:"toStatus"`
	FromPayment   string    `json:"fromPaymentStatus"`
	ToPayment     string    `json:"toPaymentStatus"`
	Note          string    `json:"note,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// Sink durably records audit entries. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Multi fans an entry out to every sink and joins their failures.
type Multi []Sink

func (m Multi) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
