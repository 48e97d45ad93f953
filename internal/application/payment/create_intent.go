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

const useCaseCreateIntent = "payment.create_intent"

// CreateIntentUseCase opens a provider-side payment for an order, at most once.
type CreateIntentUseCase struct {
	repo     domorder.Repository
	gateways Gateways
	clock    application.Clock
	effects  application.Effects
	inst     application.Instrument
}

func NewCreateIntentUseCase(repo domorder.Repository, gateways Gateways, effects application.Effects, clock application.Clock, tel observability.Observability) *CreateIntentUseCase {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &CreateIntentUseCase{
		repo:     repo,
		gateways: gateways,
		clock:    clock,
		effects:  effects,
		inst:     application.NewInstrument(tel, paymentService),
	}
}

type CreateIntentInput struct {
	OrderID string
	BuyerID string
	// Gateway is set on per-gateway routes and must match the order's gateway.
	Gateway string
}

type CreateIntentResult struct {
	Order   *domorder.Order
	Gateway string
	Intent  payment.Intent
	// Existing is set when the order already had an intent and no provider call was made.
	Existing bool
}

func (uc *CreateIntentUseCase) Execute(ctx context.Context, cmd CreateIntentInput) (_ *CreateIntentResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseCreateIntent, "CreatePaymentIntent",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.route_gateway", cmd.Gateway),
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
	if cmd.BuyerID == "" || o.BuyerID != cmd.BuyerID {
		run.Fail("ORDER_NOT_FOUND")
		return nil, domorder.ErrNotFound
	}

	gw, err := gatewayFor(uc.gateways, o, cmd.Gateway)
	if err != nil {
		run.Fail("GATEWAY_MISMATCH")
		return nil, err
	}
	run.Span().SetAttributes(attribute.String("payment.gateway", gw.Name()))

	if o.Status == domorder.StatusCancelled {
		run.Fail("ORDER_CANCELLED")
		return nil, domorder.Validation("order is cancelled")
	}
	if o.GatewayCorrelationID != "" {
		run.Status("INTENT_EXISTS")
		return existingIntent(o, gw), nil
	}
	if o.PaymentStatus != payment.StatusPending {
		run.Fail("PAYMENT_NOT_PENDING")
		return nil, domorder.Validation("order payment is already %s", o.PaymentStatus)
	}

	intent, err := gw.CreateIntent(ctx, payment.IntentRequest{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Amount:      o.Total,
		Currency:    o.Currency,
	})
	if err != nil {
		run.Fail("GATEWAY_CREATE_FAILED")
		return nil, err
	}

	var change domorder.Change
	updated, err := uc.repo.Mutate(ctx, o.ID, func(cur *domorder.Order) error {
		c, aerr := cur.AttachCorrelation(intent.CorrelationID, intent.RedirectOrToken, uc.clock.Now())
		if aerr != nil {
			return aerr
		}
		change = c
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, domorder.ErrIdempotentNoop):
		run.Status("INTENT_EXISTS")
		return &CreateIntentResult{Order: updated, Gateway: gw.Name(), Intent: *intent, Existing: true}, nil
	case errors.Is(err, domorder.ErrConflict) && updated != nil && updated.GatewayCorrelationID != "":
		// A concurrent request attached its intent first.
		run.Status("INTENT_EXISTS")
		return existingIntent(updated, gw), nil
	default:
		run.Fail("REPO_MUTATE_FAILED")
		return nil, application.WrapRepositoryError("repo.Mutate", err)
	}

	uc.effects.After(ctx, updated, change, application.Actor{UserID: cmd.BuyerID})
	run.Annotate(
		observability.F("order_id", updated.ID),
		observability.F("correlation_id", intent.CorrelationID),
		observability.F("synthetic", intent.Synthetic),
	)
	return &CreateIntentResult{Order: updated, Gateway: gw.Name(), Intent: *intent}, nil
}

func existingIntent(o *domorder.Order, gw payment.Gateway) *CreateIntentResult {
	token := o.GatewayToken
	if token == "" {
		token = o.GatewayCorrelationID
	}
	return &CreateIntentResult{
		Order:   o,
		Gateway: gw.Name(),
		Intent: payment.Intent{
			CorrelationID:   o.GatewayCorrelationID,
			RedirectOrToken: token,
			Status:          o.PaymentStatus,
			Synthetic:       gw.Synthetic(),
		},
		Existing: true,
	}
}
