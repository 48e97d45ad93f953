package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderUpdateStatus = "order.update_status"

// UpdateStatusUseCase moves an order along the fulfilment graph on behalf of an admin.
type UpdateStatusUseCase struct {
	repo    domain.Repository
	clock   application.Clock
	effects application.Effects
	inst    application.Instrument
}

func NewUpdateStatusUseCase(repo domain.Repository, effects application.Effects, clock application.Clock, tel observability.Observability) *UpdateStatusUseCase {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &UpdateStatusUseCase{
		repo:    repo,
		clock:   clock,
		effects: effects,
		inst:    application.NewInstrument(tel, orderService),
	}
}

type UpdateStatusInput struct {
	OrderID  string
	Actor    application.Actor
	Status   string
	Note     string
	Tracking *domain.Tracking
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.next_status", cmd.Status),
	)
	defer func() { run.End(err) }()

	if !cmd.Actor.Admin {
		run.Fail("FORBIDDEN")
		return nil, domain.ErrForbidden
	}
	next, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		run.Fail("STATUS_INVALID")
		return nil, domain.Validation("unknown status %q", cmd.Status)
	}

	var change domain.Change
	updated, err := uc.repo.Mutate(ctx, cmd.OrderID, func(o *domain.Order) error {
		c, terr := o.TransitionTo(next, cmd.Note, cmd.Tracking, uc.clock.Now())
		if terr != nil {
			return terr
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

	out := uc.effects.After(ctx, updated, change, cmd.Actor)
	if out.StockRestoreErr != nil {
		run.Status("STOCK_RESTORE_FAILED")
	}
	run.Annotate(
		observability.F("order_id", updated.ID),
		observability.F("from_status", string(change.FromStatus)),
		observability.F("to_status", string(change.ToStatus)),
	)
	return updated, nil
}
