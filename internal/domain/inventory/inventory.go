package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrProductInactive   = errors.New("inventory: product is not active")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// InsufficientStockError reports the product that could not be reserved.
// Available is -1 when the shortfall was detected by a lost atomic race rather than a read.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("inventory: insufficient stock for product %s: requested %d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("inventory: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Product is the subset of a catalog product this engine reads.
type Product struct {
	ID         string
	SellerID   string
	Name       string
	UnitPrice  int64
	ImageRef   string
	Stock      int
	Active     bool
	SalesCount int64
}

// ProductStore is the catalog collaborator. Stock mutations must be single atomic operations.
type ProductStore interface {
	// FindActiveByID returns ErrProductNotFound for unknown ids and ErrProductInactive for delisted ones.
	FindActiveByID(ctx context.Context, id string) (*Product, error)
	// DecrementStock subtracts n iff current stock >= n, reporting whether it did.
	DecrementStock(ctx context.Context, id string, n int) (bool, error)
	IncrementStock(ctx context.Context, id string, n int) error
	IncrementSalesCount(ctx context.Context, id string, n int) error
}

// CartStore is the cart collaborator.
type CartStore interface {
	ClearForUser(ctx context.Context, userID string) error
}
