package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderCancel = "order.cancel"

// CancelOrderUseCase lets the owning buyer cancel an order that has not started processing.
type CancelOrderUseCase struct {
	repo    domain.Repository
	clock   application.Clock
	effects application.Effects
	inst    application.Instrument
}

func NewCancelOrderUseCase(repo domain.Repository, effects application.Effects, clock application.Clock, tel observability.Observability) *CancelOrderUseCase {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &CancelOrderUseCase{
		repo:    repo,
		clock:   clock,
		effects: effects,
		inst:    application.NewInstrument(tel, orderService),
	}
}

type CancelOrderInput struct {
	OrderID string
	BuyerID string
	Note    string
}

func (uc *CancelOrderUseCase) Execute(ctx context.Context, cmd CancelOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	if cmd.BuyerID == "" {
		run.Fail("BUYER_ID_REQUIRED")
		return nil, domain.Validation("buyer id is required")
	}

	var change domain.Change
	updated, err := uc.repo.Mutate(ctx, cmd.OrderID, func(o *domain.Order) error {
		if o.BuyerID != cmd.BuyerID {
			return domain.ErrNotFound
		}
		c, cerr := o.CancelByBuyer(cmd.Note, uc.clock.Now())
		if cerr != nil {
			return cerr
		}
		change = c
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			run.Fail("ORDER_NOT_FOUND")
		case errors.Is(err, domain.ErrInvalidTransition):
			run.Fail("TRANSITION_NOT_ALLOWED")
		default:
			run.Fail("REPO_MUTATE_FAILED")
		}
		return nil, application.WrapRepositoryError("repo.Mutate", err)
	}

	out := uc.effects.After(ctx, updated, change, application.Actor{UserID: cmd.BuyerID})
	if out.StockRestoreErr != nil {
		run.Status("STOCK_RESTORE_FAILED")
	}
	run.Annotate(observability.F("order_id", updated.ID))
	return updated, nil
}
