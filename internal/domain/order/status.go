package order

import "fmt"

type Status string

const (
	StatusPlaced         Status = "placed"
	StatusConfirmed      Status = "confirmed"
	StatusProcessing     Status = "processing"
	StatusPacked         Status = "packed"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusReturned       Status = "returned"
	StatusRefunded       Status = "refunded"
)

// allowedTransitions is the directed status graph. Every pre-delivery status may be cancelled.
var allowedTransitions = map[Status][]Status{
	StatusPlaced:         {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusPacked, StatusCancelled},
	StatusPacked:         {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {StatusReturned},
	StatusReturned:       {StatusRefunded},
	StatusCancelled:      {},
	StatusRefunded:       {},
}

// buyerCancellable are the statuses from which the owning buyer may cancel.
var buyerCancellable = map[Status]bool{
	StatusPlaced:    true,
	StatusConfirmed: true,
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ParseStatus validates a status received from a caller or the store.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("order: unknown status %q", v)
	}
	return s, nil
}

// CanTransitionTo reports whether next is directly reachable from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BuyerCancellable reports whether the owning buyer may cancel from s.
func (s Status) BuyerCancellable() bool {
	return buyerCancellable[s]
}
