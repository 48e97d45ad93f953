package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	dominv "github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	workerService        = "inventory-worker"
	useCaseSalesIncrease = "inventory.worker.sales_count"
)

// SalesCountWorker bumps each product's sales count once an order is placed.
type SalesCountWorker struct {
	products dominv.ProductStore
	inst     application.Instrument
}

func NewSalesCountWorker(products dominv.ProductStore, tel observability.Observability) *SalesCountWorker {
	return &SalesCountWorker{products: products, inst: application.NewInstrument(tel, workerService)}
}

func (w *SalesCountWorker) Start(sub outbox.Subscriber, mws ...outbox.Middleware) {
	if sub == nil || w.products == nil {
		return
	}
	sub.Subscribe(domorder.OrderCreatedEvent{}.EventName(), outbox.Chain(w.HandleOrderCreated, mws...))
}

func (w *SalesCountWorker) HandleOrderCreated(ctx context.Context, e outbox.Event) (err error) {
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}

	ctx, run := w.inst.Start(ctx, useCaseSalesIncrease, "IncrementSalesCount",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", evt.OrderID),
	)
	defer func() { run.End(err) }()

	var errs []error
	for _, it := range evt.Items {
		if ierr := w.products.IncrementSalesCount(ctx, it.ProductID, it.Quantity); ierr != nil {
			errs = append(errs, fmt.Errorf("products.IncrementSalesCount[%s]: %w", it.ProductID, ierr))
		}
	}
	if err := errors.Join(errs...); err != nil {
		run.Fail("SALES_COUNT_FAILED")
		return err
	}
	run.Annotate(observability.F("order_id", evt.OrderID))
	return nil
}
