package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
)

type OrderRepository struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	byNumber      map[string]string
	byCorrelation map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:        make(map[string]*domain.Order),
		byNumber:      make(map[string]string),
		byCorrelation: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byNumber[order.OrderNumber]; exists {
		return domain.ErrConflict
	}
	if c := order.GatewayCorrelationID; c != "" {
		if _, exists := r.byCorrelation[c]; exists {
			return domain.ErrConflict
		}
		r.byCorrelation[c] = order.ID
	}

	r.orders[order.ID] = order.Clone()
	r.byNumber[order.OrderNumber] = order.ID
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return order.Clone(), nil
}

func (r *OrderRepository) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.Order, error) {
	_ = ctx
	if correlationID == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.byCorrelation[correlationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[orderID]
	if !found {
		return nil, domain.ErrNotFound
	}

	return order.Clone(), nil
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderNumber > out[j].OrderNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Mutate holds the write lock for the whole read-modify-write, which makes it atomic per order.
func (r *OrderRepository) Mutate(ctx context.Context, id string, fn domain.MutateFunc) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return current.Clone(), err
	}

	if c := working.GatewayCorrelationID; c != current.GatewayCorrelationID {
		if owner, taken := r.byCorrelation[c]; taken && owner != id {
			return current.Clone(), fmt.Errorf("correlation id %s: %w", c, domain.ErrConflict)
		}
		if current.GatewayCorrelationID != "" {
			return current.Clone(), errors.Join(domain.ErrConflict, errors.New("correlation id is immutable"))
		}
		r.byCorrelation[c] = id
	}

	r.orders[id] = working.Clone()
	return working, nil
}
