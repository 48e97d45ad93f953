package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

const orderColumns = `id, order_number, buyer_id, items, subtotal, shipping_cost, tax, total, currency,
	shipping_address, billing_address, payment_method, payment_status, gateway_correlation_id,
	gateway_payment_id, amount_paid, status, status_history, tracking, paid_at, cancelled_at,
	delivered_at, refunded_at, refund_amount, refund_reason, stock_restored, created_at, updated_at, gateway_token`

type OrderStore struct {
	pool *pgxpool.Pool
}

var _ domain.Repository = (*OrderStore)(nil)

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	args, err := orderArgs(o)
	if err != nil {
		return fmt.Errorf("orderArgs: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)`,
		args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert order %s: %w", o.OrderNumber, domain.ErrConflict)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	return o, nil
}

func (s *OrderStore) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.Order, error) {
	if correlationID == "" {
		return nil, domain.ErrNotFound
	}
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_correlation_id = $1`, correlationID))
	if err != nil {
		return nil, fmt.Errorf("select order by correlation: %w", err)
	}
	return o, nil
}

func (s *OrderStore) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1
		ORDER BY created_at DESC, order_number DESC`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("select buyer orders: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrder: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return out, nil
}

// Mutate locks the row with SELECT ... FOR UPDATE so concurrent mutations of one order serialize.
func (s *OrderStore) Mutate(ctx context.Context, id string, fn domain.MutateFunc) (*domain.Order, error) {
	return withTx(ctx, s.pool, func(tx pgx.Tx) (*domain.Order, error) {
		current, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return nil, fmt.Errorf("select order for update: %w", err)
		}

		working := current.Clone()
		if err := fn(working); err != nil {
			return current, err
		}
		if current.GatewayCorrelationID != "" && working.GatewayCorrelationID != current.GatewayCorrelationID {
			return current, errors.Join(domain.ErrConflict, errors.New("correlation id is immutable"))
		}

		args, err := orderArgs(working)
		if err != nil {
			return current, fmt.Errorf("orderArgs: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET
			items = $4, subtotal = $5, shipping_cost = $6, tax = $7, total = $8, currency = $9,
			shipping_address = $10, billing_address = $11, payment_method = $12, payment_status = $13,
			gateway_correlation_id = $14, gateway_payment_id = $15, amount_paid = $16, status = $17,
			status_history = $18, tracking = $19, paid_at = $20, cancelled_at = $21, delivered_at = $22,
			refunded_at = $23, refund_amount = $24, refund_reason = $25, stock_restored = $26,
			created_at = $27, updated_at = $28, gateway_token = $29
			WHERE id = $1 AND order_number = $2 AND buyer_id = $3`, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return current, fmt.Errorf("update order %s: %w", id, domain.ErrConflict)
			}
			return current, fmt.Errorf("update order: %w", err)
		}
		return working, nil
	})
}

func orderArgs(o *domain.Order) ([]any, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err := marshalOptional(o.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal billing address: %w", err)
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	tracking, err := marshalOptional(o.Tracking)
	if err != nil {
		return nil, fmt.Errorf("marshal tracking: %w", err)
	}

	return []any{
		o.ID, o.OrderNumber, o.BuyerID, items, o.Subtotal, o.ShippingCost, o.Tax, o.Total, o.Currency,
		shipping, billing, o.PaymentMethod, string(o.PaymentStatus), lo.EmptyableToPtr(o.GatewayCorrelationID),
		o.GatewayPaymentID, o.AmountPaid, string(o.Status), history, tracking, o.PaidAt, o.CancelledAt,
		o.DeliveredAt, o.RefundedAt, o.RefundAmount, o.RefundReason, o.StockRestored, o.CreatedAt, o.UpdatedAt,
		o.GatewayToken,
	}, nil
}

func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                        domain.Order
		items, shipping, history []byte
		billing, tracking        []byte
		paymentStatus, status    string
		correlationID            *string
		paidAt, cancelledAt      *time.Time
		deliveredAt, refundedAt  *time.Time
	)

	err := row.Scan(&o.ID, &o.OrderNumber, &o.BuyerID, &items, &o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total,
		&o.Currency, &shipping, &billing, &o.PaymentMethod, &paymentStatus, &correlationID, &o.GatewayPaymentID,
		&o.AmountPaid, &status, &history, &tracking, &paidAt, &cancelledAt, &deliveredAt, &refundedAt,
		&o.RefundAmount, &o.RefundReason, &o.StockRestored, &o.CreatedAt, &o.UpdatedAt, &o.GatewayToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	if len(billing) > 0 {
		o.BillingAddress = new(domain.Address)
		if err := json.Unmarshal(billing, o.BillingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
	}
	if len(tracking) > 0 {
		o.Tracking = new(domain.Tracking)
		if err := json.Unmarshal(tracking, o.Tracking); err != nil {
			return nil, fmt.Errorf("unmarshal tracking: %w", err)
		}
	}

	o.PaymentStatus = payment.Status(paymentStatus)
	o.Status = domain.Status(status)
	o.GatewayCorrelationID = lo.FromPtr(correlationID)
	o.PaidAt = utcPtr(paidAt)
	o.CancelledAt = utcPtr(cancelledAt)
	o.DeliveredAt = utcPtr(deliveredAt)
	o.RefundedAt = utcPtr(refundedAt)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	for i := range o.StatusHistory {
		o.StatusHistory[i].Timestamp = o.StatusHistory[i].Timestamp.UTC()
	}
	return &o, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.UTC())
}
