package postgres

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartStore struct {
	pool *pgxpool.Pool
}

var _ inventory.CartStore = (*CartStore)(nil)

func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// Add accumulates quantity onto an existing cart line.
func (s *CartStore) Add(ctx context.Context, userID, productID string, quantity int) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (s *CartStore) Items(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_id, quantity FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			productID string
			quantity  int
		)
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		out[productID] = quantity
	}
	return out, rows.Err()
}

func (s *CartStore) ClearForUser(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}
