package inventory

import (
	"context"
	"errors"
	"fmt"
)

// Line is one product quantity moved by the ledger.
type Line struct {
	ProductID string
	Quantity  int
}

// Ledger reserves and restores stock over a ProductStore's atomic primitives.
type Ledger struct {
	store ProductStore
}

func NewLedger(store ProductStore) *Ledger {
	return &Ledger{store: store}
}

// Reserve decrements every line or none. When a decrement loses a race, the lines already
// reserved by this call are restored before the InsufficientStockError is returned.
func (l *Ledger) Reserve(ctx context.Context, lines []Line) error {
	reserved := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return errors.Join(ErrInvalidQuantity, l.rollback(ctx, reserved))
		}
		ok, err := l.store.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return errors.Join(fmt.Errorf("store.DecrementStock[%s]: %w", line.ProductID, err), l.rollback(ctx, reserved))
		}
		if !ok {
			shortfall := &InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity, Available: -1}
			return errors.Join(shortfall, l.rollback(ctx, reserved))
		}
		reserved = append(reserved, line)
	}
	return nil
}

// Restore increments every line. It attempts all lines and joins the failures.
func (l *Ledger) Restore(ctx context.Context, lines []Line) error {
	var errs []error
	for _, line := range lines {
		if err := l.store.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("store.IncrementStock[%s]: %w", line.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) rollback(ctx context.Context, reserved []Line) error {
	if len(reserved) == 0 {
		return nil
	}
	// The caller's context may already be cancelled; restoring must still happen.
	if err := l.Restore(context.WithoutCancel(ctx), reserved); err != nil {
		return fmt.Errorf("rollback reservation: %w", err)
	}
	return nil
}
