package postgres

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditSink struct {
	pool *pgxpool.Pool
}

var _ audit.Sink = (*AuditSink)(nil)

func NewAuditSink(pool *pgxpool.Pool) *AuditSink {
	return &AuditSink{pool: pool}
}

// Record is idempotent on the entry id.
func (s *AuditSink) Record(ctx context.Context, e audit.Entry) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO order_audit (id, order_id, order_number, action, actor, from_status,
		to_status, from_payment, to_payment, note, correlation_id, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) ON CONFLICT (id) DO NOTHING`,
		e.ID, e.OrderID, e.OrderNumber, e.Action, e.Actor, e.FromStatus, e.ToStatus, e.FromPayment,
		e.ToPayment, e.Note, e.CorrelationID, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditSink) ForOrder(ctx context.Context, orderID string) ([]audit.Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, order_id, order_number, action, actor, from_status, to_status,
		from_payment, to_payment, note, correlation_id, recorded_at
		FROM order_audit WHERE order_id = $1 ORDER BY recorded_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.OrderNumber, &e.Action, &e.Actor, &e.FromStatus, &e.ToStatus,
			&e.FromPayment, &e.ToPayment, &e.Note, &e.CorrelationID, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		e.RecordedAt = e.RecordedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
