package audit

import (
	"context"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/Zhima-Mochi/artisanmart/internal/observability/logctx"
)

// LogSink writes each entry as a structured "order_audit" log line.
type LogSink struct {
	log observability.Logger
}

var _ audit.Sink = (*LogSink)(nil)

func NewLogSink(log observability.Logger) *LogSink {
	if log == nil {
		log = observability.NopLogger()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Record(ctx context.Context, e audit.Entry) error {
	logctx.FromOr(ctx, s.log).Info("order_audit",
		observability.F("audit_id", e.ID),
		observability.F("order_id", e.OrderID),
		observability.F("order_number", e.OrderNumber),
		observability.F("action", e.Action),
		observability.F("actor", e.Actor),
		observability.F("from_status", e.FromStatus),
		observability.F("to_status", e.ToStatus),
		observability.F("from_payment_status", e.FromPayment),
		observability.F("to_payment_status", e.ToPayment),
		observability.F("correlation_id", e.CorrelationID),
		observability.F("note", e.Note),
		observability.F("recorded_at", e.RecordedAt),
	)
	return nil
}
