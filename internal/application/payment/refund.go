package payment

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"go.opentelemetry.io/otel/attribute"
)

const useCaseRefund = "payment.refund"

// RefundUseCase returns the full captured amount through the order's gateway.
type RefundUseCase struct {
	repo     domorder.Repository
	gateways Gateways
	clock    application.Clock
	applier  applier
	inst     application.Instrument
}

func NewRefundUseCase(repo domorder.Repository, gateways Gateways, effects application.Effects, clock application.Clock, tel observability.Observability) *RefundUseCase {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &RefundUseCase{
		repo:     repo,
		gateways: gateways,
		clock:    clock,
		applier:  applier{repo: repo, effects: effects},
		inst:     application.NewInstrument(tel, paymentService),
	}
}

type RefundInput struct {
	OrderID string
	Actor   application.Actor
	// Amount nil means the full amount paid.
	Amount  *int64
	Reason  string
	Gateway string
}

type RefundResult struct {
	Order  *domorder.Order
	Refund payment.RefundConfirmation
}

func (uc *RefundUseCase) Execute(ctx context.Context, cmd RefundInput) (_ *RefundResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseRefund, "RefundPayment",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	if !cmd.Actor.Admin {
		run.Fail("FORBIDDEN")
		return nil, domorder.ErrForbidden
	}

	o, err := uc.repo.Get(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("REPO_GET_FAILED")
		}
		return nil, application.WrapRepositoryError("repo.Get", err)
	}

	amount, err := o.RefundableAmount(cmd.Amount)
	if err != nil {
		run.Fail("REFUND_NOT_ALLOWED")
		return nil, err
	}

	gw, err := gatewayFor(uc.gateways, o, cmd.Gateway)
	if err != nil {
		run.Fail("GATEWAY_MISMATCH")
		return nil, err
	}

	conf, err := gw.Refund(ctx, payment.RefundRequest{
		CorrelationID: o.GatewayCorrelationID,
		PaymentID:     o.GatewayPaymentID,
		Amount:        amount,
		Reason:        cmd.Reason,
	})
	if err != nil {
		run.Fail("GATEWAY_REFUND_FAILED")
		return nil, err
	}
	if conf.Amount <= 0 {
		conf.Amount = amount
	}

	updated, applied, err := uc.applier.apply(ctx, o.ID, domorder.PaymentUpdate{
		Status: payment.StatusRefunded,
		Amount: conf.Amount,
		Source: gw.Name() + " refund " + conf.RefundID,
		Reason: cmd.Reason,
		At:     uc.clock.Now(),
	}, cmd.Actor)
	if err != nil {
		run.Fail("REPO_MUTATE_FAILED")
		return nil, err
	}
	if !applied {
		run.Status("ALREADY_APPLIED")
	}
	run.Annotate(
		observability.F("order_id", updated.ID),
		observability.F("refund_id", conf.RefundID),
		observability.F("refund_amount", conf.Amount),
		observability.F("manual", conf.Manual),
	)
	return &RefundResult{Order: updated, Refund: *conf}, nil
}
