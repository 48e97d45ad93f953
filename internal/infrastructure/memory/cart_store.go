package memory

import (
	"context"
	"sync"
)

// CartStore keeps per-user cart lines keyed by product id.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]map[string]int)}
}

func (s *CartStore) Add(userID, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[userID]
	if !ok {
		cart = make(map[string]int)
		s.carts[userID] = cart
	}
	cart[productID] += quantity
}

func (s *CartStore) Items(userID string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.carts[userID]))
	for k, v := range s.carts[userID] {
		out[k] = v
	}
	return out
}

func (s *CartStore) ClearForUser(ctx context.Context, userID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
