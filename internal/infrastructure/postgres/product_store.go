package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

var _ inventory.ProductStore = (*ProductStore)(nil)

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// Upsert inserts or replaces a catalog product. Used for seeding.
func (s *ProductStore) Upsert(ctx context.Context, p inventory.Product) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO products (id, seller_id, name, unit_price, image_ref, stock, active, sales_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET seller_id = EXCLUDED.seller_id, name = EXCLUDED.name,
			unit_price = EXCLUDED.unit_price, image_ref = EXCLUDED.image_ref, stock = EXCLUDED.stock,
			active = EXCLUDED.active`,
		p.ID, p.SellerID, p.Name, p.UnitPrice, p.ImageRef, p.Stock, p.Active, p.SalesCount)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (s *ProductStore) Get(ctx context.Context, id string) (*inventory.Product, error) {
	var p inventory.Product
	err := s.pool.QueryRow(ctx, `SELECT id, seller_id, name, unit_price, image_ref, stock, active, sales_count
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.UnitPrice, &p.ImageRef, &p.Stock, &p.Active, &p.SalesCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
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

// DecrementStock is a single guarded UPDATE, so two buyers can never both take the last unit.
func (s *ProductStore) DecrementStock(ctx context.Context, id string, n int) (bool, error) {
	if n <= 0 {
		return false, inventory.ErrInvalidQuantity
	}
	tag, err := s.pool.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, id, n)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return inventory.ErrInvalidQuantity
	}
	tag, err := s.pool.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1`, id, n)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

func (s *ProductStore) IncrementSalesCount(ctx context.Context, id string, n int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE products SET sales_count = sales_count + $2 WHERE id = $1`, id, n)
	if err != nil {
		return fmt.Errorf("increment sales count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}
