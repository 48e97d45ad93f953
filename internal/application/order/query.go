package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseOrderGet  = "order.get"
	useCaseOrderList = "order.list_mine"
)

type GetOrderUseCase struct {
	repo domain.Repository
	inst application.Instrument
}

func NewGetOrderUseCase(repo domain.Repository, tel observability.Observability) *GetOrderUseCase {
	return &GetOrderUseCase{repo: repo, inst: application.NewInstrument(tel, orderService)}
}

type GetOrderInput struct {
	OrderID string
	Actor   application.Actor
}

// Execute hides orders owned by someone else behind ErrNotFound.
func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderGet, "GetOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("REPO_GET_FAILED")
		}
		return nil, application.WrapRepositoryError("repo.Get", err)
	}
	if !cmd.Actor.CanRead(o.BuyerID) {
		run.Fail("ORDER_NOT_FOUND")
		return nil, domain.ErrNotFound
	}
	return o, nil
}

type ListMyOrdersUseCase struct {
	repo domain.Repository
	inst application.Instrument
}

func NewListMyOrdersUseCase(repo domain.Repository, tel observability.Observability) *ListMyOrdersUseCase {
	return &ListMyOrdersUseCase{repo: repo, inst: application.NewInstrument(tel, orderService)}
}

func (uc *ListMyOrdersUseCase) Execute(ctx context.Context, buyerID string) (_ []*domain.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderList, "ListMyOrders")
	defer func() { run.End(err) }()

	if buyerID == "" {
		run.Fail("BUYER_ID_REQUIRED")
		return nil, domain.Validation("buyer id is required")
	}
	orders, err := uc.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, application.WrapRepositoryError("repo.ListByBuyer", err)
	}
	run.Annotate(observability.F("count", len(orders)))
	return orders, nil
}
