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

const useCaseVerify = "payment.verify"

// VerifyPaymentUseCase confirms a client-reported payment with the provider.
type VerifyPaymentUseCase struct {
	repo     domorder.Repository
	gateways Gateways
	clock    application.Clock
	applier  applier
	inst     application.Instrument
}

func NewVerifyPaymentUseCase(repo domorder.Repository, gateways Gateways, effects application.Effects, clock application.Clock, tel observability.Observability) *VerifyPaymentUseCase {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &VerifyPaymentUseCase{
		repo:     repo,
		gateways: gateways,
		clock:    clock,
		applier:  applier{repo: repo, effects: effects},
		inst:     application.NewInstrument(tel, paymentService),
	}
}

type VerifyPaymentInput struct {
	BuyerID       string
	CorrelationID string
	PaymentID     string
	Signature     string
	Gateway       string
}

type VerifyPaymentResult struct {
	Order     *domorder.Order
	Status    payment.Status
	Applied   bool
	Synthetic bool
}

func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, cmd VerifyPaymentInput) (_ *VerifyPaymentResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseVerify, "VerifyPayment",
		attribute.String("payment.correlation_id", cmd.CorrelationID),
	)
	defer func() { run.End(err) }()

	if cmd.CorrelationID == "" {
		run.Fail("CORRELATION_ID_REQUIRED")
		return nil, domorder.Validation("correlation id is required")
	}
	o, err := uc.repo.FindByCorrelationID(ctx, cmd.CorrelationID)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("REPO_GET_FAILED")
		}
		return nil, application.WrapRepositoryError("repo.FindByCorrelationID", err)
	}
	if cmd.BuyerID == "" || o.BuyerID != cmd.BuyerID {
		run.Fail("ORDER_NOT_FOUND")
		return nil, domorder.ErrNotFound
	}

	gw, err := gatewayFor(uc.gateways, o, cmd.Gateway)
	if err != nil {
		run.Fail("GATEWAY_MISMATCH")
		return nil, err
	}

	v, err := gw.Verify(ctx, payment.VerifyRequest{
		CorrelationID: cmd.CorrelationID,
		PaymentID:     cmd.PaymentID,
		Signature:     cmd.Signature,
	})
	if err != nil {
		if errors.Is(err, payment.ErrSignatureVerification) {
			run.Fail("SIGNATURE_INVALID")
		} else {
			run.Fail("GATEWAY_VERIFY_FAILED")
		}
		return nil, err
	}

	updated, applied, err := uc.applier.apply(ctx, o.ID, domorder.PaymentUpdate{
		Status:    v.Status,
		PaymentID: v.PaymentID,
		Amount:    v.Amount,
		Source:    gw.Name() + " verify",
		At:        uc.clock.Now(),
	}, application.Actor{UserID: cmd.BuyerID})
	if err != nil {
		run.Fail("REPO_MUTATE_FAILED")
		return nil, err
	}
	if !applied {
		run.Status("ALREADY_APPLIED")
	}
	run.Annotate(
		observability.F("order_id", updated.ID),
		observability.F("payment_status", string(updated.PaymentStatus)),
	)
	return &VerifyPaymentResult{Order: updated, Status: updated.PaymentStatus, Applied: applied, Synthetic: v.Synthetic}, nil
}
