package payment

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const useCasePaymentStatus = "payment.status"

type PaymentStatusUseCase struct {
	repo domorder.Repository
	inst application.Instrument
}

func NewPaymentStatusUseCase(repo domorder.Repository, tel observability.Observability) *PaymentStatusUseCase {
	return &PaymentStatusUseCase{repo: repo, inst: application.NewInstrument(tel, paymentService)}
}

type PaymentStatusInput struct {
	OrderID string
	Actor   application.Actor
}

func (uc *PaymentStatusUseCase) Execute(ctx context.Context, cmd PaymentStatusInput) (_ *domorder.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCasePaymentStatus, "PaymentStatus",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("REPO_GET_FAILED")
		}
		return nil, application.WrapRepositoryError("repo.Get", err)
	}
	if !cmd.Actor.CanRead(o.BuyerID) {
		run.Fail("ORDER_NOT_FOUND")
		return nil, domorder.ErrNotFound
	}
	return o, nil
}
