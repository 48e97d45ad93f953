package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
)

const (
	peerOutbox     = "outbox"
	publishTimeout = 300 * time.Millisecond
	auditTimeout   = 2 * time.Second
)

// Effects runs the follow-ups of a committed order mutation: restoring stock when the
// mutation claimed it, writing the audit entry and publishing the domain events.
// None of them can fail the mutation; failures are logged.
type Effects struct {
	Ledger    *inventory.Ledger
	Audit     audit.Sink
	Publisher outbox.Publisher
	IDs       IDGenerator
	Clock     Clock
	Inst      Instrument
}

// Outcome summarizes which follow-ups failed, for the use case log line.
type Outcome struct {
	StockRestoreErr error
	AuditErr        error
	PublishErr      error
}

func (e Effects) After(ctx context.Context, o *domorder.Order, c domorder.Change, actor Actor) Outcome {
	var out Outcome
	logger := e.Inst.runLogger(ctx)

	if c.RestoreStock && e.Ledger != nil {
		if err := e.Ledger.Restore(context.WithoutCancel(ctx), o.Lines()); err != nil {
			out.StockRestoreErr = err
			logger.Error("stock_restore_failed",
				observability.F("order_id", o.ID),
				observability.Err(err),
			)
		}
	}

	if c.Warning != "" {
		logger.Warn("order_change_warning",
			observability.F("order_id", o.ID),
			observability.F("warning", c.Warning),
		)
	}

	out.AuditErr = e.record(ctx, e.entry(o, c, actor))
	if out.AuditErr != nil {
		logger.Error("audit_record_failed",
			observability.F("order_id", o.ID),
			observability.F("action", c.Action),
			observability.Err(out.AuditErr),
		)
	}

	for _, evt := range domorder.EventsFor(o, c) {
		if err := e.Publish(ctx, evt); err != nil && out.PublishErr == nil {
			out.PublishErr = err
		}
	}
	return out
}

// Publish sends one event with a short timeout and records it as an external call.
func (e Effects) Publish(ctx context.Context, evt outbox.Event) error {
	if e.Publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := e.Publisher.Publish(pubCtx, evt)
	if err != nil {
		outcome = "error"
		e.Inst.runLogger(ctx).Warn("event_publish_failed",
			observability.F("event", evt.EventName()),
			observability.Err(err),
		)
	}
	e.Inst.External(peerOutbox, evt.EventName(), outcome, start)
	return err
}

// Record writes a standalone audit entry, e.g. for creation.
func (e Effects) Record(ctx context.Context, o *domorder.Order, c domorder.Change, actor Actor) error {
	err := e.record(ctx, e.entry(o, c, actor))
	if err != nil {
		e.Inst.runLogger(ctx).Error("audit_record_failed",
			observability.F("order_id", o.ID),
			observability.F("action", c.Action),
			observability.Err(err),
		)
	}
	return err
}

func (e Effects) record(ctx context.Context, entry audit.Entry) error {
	if e.Audit == nil {
		return nil
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	return e.Audit.Record(actx, entry)
}

func (e Effects) entry(o *domorder.Order, c domorder.Change, actor Actor) audit.Entry {
	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock.Now()
	}
	id := ""
	if e.IDs != nil {
		id = e.IDs.NewID()
	}
	note := c.Note
	if c.Warning != "" {
		note = c.Warning
	}
	return audit.Entry{
		ID:            id,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Action:        c.Action,
		Actor:         actor.String(),
		FromStatus:    string(c.FromStatus),
		ToStatus:      string(c.ToStatus),
		FromPayment:   string(c.FromPayment),
		ToPayment:     string(c.ToPayment),
		Note:          note,
		CorrelationID: o.GatewayCorrelationID,
		RecordedAt:    now,
	}
}
