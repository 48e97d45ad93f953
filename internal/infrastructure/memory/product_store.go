package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
)

// ProductStore is an in-memory catalog. Stock moves are check-and-set under one mutex.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]*inventory.Product
}

func NewProductStore(products ...inventory.Product) *ProductStore {
	s := &ProductStore{products: make(map[string]*inventory.Product, len(products))}
	for _, p := range products {
		s.Put(p)
	}
	return s
}

// Put inserts or replaces a product.
func (s *ProductStore) Put(p inventory.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := p
	s.products[p.ID] = &clone
}

// Get returns a product regardless of its active flag.
func (s *ProductStore) Get(ctx context.Context, id string) (*inventory.Product, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (s *ProductStore) FindActiveByID(ctx context.Context, id string) (*inventory.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, inventory.ErrProductInactive
	}
	return p, nil
}

func (s *ProductStore) DecrementStock(ctx context.Context, id string, n int) (bool, error) {
	_ = ctx
	if n <= 0 {
		return false, inventory.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, inventory.ErrProductNotFound
	}
	if p.Stock < n {
		return false, nil
	}
	p.Stock -= n
	return true, nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, id string, n int) error {
	_ = ctx
	if n <= 0 {
		return inventory.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.Stock += n
	return nil
}

func (s *ProductStore) IncrementSalesCount(ctx context.Context, id string, n int) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.SalesCount += int64(n)
	return nil
}

func cloneProduct(p *inventory.Product) *inventory.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
