package order

import "context"

// MutateFunc edits the current order in place. Returning an error, including
// ErrIdempotentNoop, discards the edit.
type MutateFunc func(o *Order) error

type Repository interface {
	// Insert returns ErrConflict when the id or order number already exists.
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*Order, error)
	// ListByBuyer returns the buyer's orders, newest first.
	ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error)
	// Mutate runs fn against the current stored order as one atomic read-modify-write and
	// returns the resulting order. When fn fails, the unmodified order is returned with the error.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Order, error)
}
