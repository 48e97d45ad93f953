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

const useCaseWebhook = "payment.webhook"

type WebhookOutcome string

const (
	WebhookApplied        WebhookOutcome = "applied"
	WebhookAlreadyApplied WebhookOutcome = "already_applied"
	WebhookIgnored        WebhookOutcome = "ignored"
)

// ReconcileWebhookUseCase authenticates a provider callback and folds it into the order.
type ReconcileWebhookUseCase struct {
	repo     domorder.Repository
	gateways Gateways
	clock    application.Clock
	applier  applier
	inst     application.Instrument
}

func NewReconcileWebhookUseCase(repo domorder.Repository, gateways Gateways, effects application.Effects, clock application.Clock, tel observability.Observability) *ReconcileWebhookUseCase {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &ReconcileWebhookUseCase{
		repo:     repo,
		gateways: gateways,
		clock:    clock,
		applier:  applier{repo: repo, effects: effects},
		inst:     application.NewInstrument(tel, paymentService),
	}
}

type WebhookInput struct {
	Gateway string
	Request payment.WebhookRequest
}

type WebhookResult struct {
	Outcome WebhookOutcome
	Event   *payment.WebhookEvent
	Order   *domorder.Order
}

func (uc *ReconcileWebhookUseCase) Execute(ctx context.Context, cmd WebhookInput) (_ *WebhookResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseWebhook, "ReconcileWebhook",
		attribute.String("payment.gateway", cmd.Gateway),
	)
	defer func() { run.End(err) }()

	gw, ok := uc.gateways.Lookup(cmd.Gateway)
	if !ok {
		run.Fail("GATEWAY_UNKNOWN")
		return nil, domorder.Validation("unknown gateway %q", cmd.Gateway)
	}

	evt, err := gw.ParseWebhook(ctx, cmd.Request)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSignatureVerification):
			run.Fail("SIGNATURE_INVALID")
			return nil, err
		case errors.Is(err, payment.ErrUnsupportedEvent), errors.Is(err, payment.ErrMalformedPayload):
			run.Status("EVENT_IGNORED")
			run.Logger().Warn("webhook_ignored",
				observability.F("gateway", gw.Name()),
				observability.F("reason", err.Error()),
			)
			return &WebhookResult{Outcome: WebhookIgnored}, nil
		default:
			run.Fail("WEBHOOK_PARSE_FAILED")
			return nil, err
		}
	}
	run.Span().SetAttributes(
		attribute.String("payment.event", string(evt.Type)),
		attribute.String("payment.correlation_id", evt.CorrelationID),
	)
	run.Annotate(
		observability.F("event_type", string(evt.Type)),
		observability.F("correlation_id", evt.CorrelationID),
		observability.F("synthetic", evt.Synthetic),
	)

	o, err := uc.repo.FindByCorrelationID(ctx, evt.CorrelationID)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			run.Fail("ORDER_NOT_FOUND")
		} else {
			run.Fail("REPO_GET_FAILED")
		}
		return nil, application.WrapRepositoryError("repo.FindByCorrelationID", err)
	}
	if evt.OrderReference != "" && evt.OrderReference != o.OrderNumber {
		run.Fail("ORDER_REFERENCE_MISMATCH")
		return nil, domorder.ErrNotFound
	}

	updated, applied, err := uc.applier.apply(ctx, o.ID, domorder.PaymentUpdate{
		Status:    evt.Status,
		PaymentID: evt.PaymentID,
		Amount:    evt.Amount,
		Source:    gw.Name() + " " + string(evt.Type),
		At:        uc.clock.Now(),
	}, application.System(gw.Name()+"-webhook"))
	if err != nil {
		run.Fail("REPO_MUTATE_FAILED")
		return nil, err
	}

	outcome := WebhookApplied
	if !applied {
		outcome = WebhookAlreadyApplied
		run.Status("ALREADY_APPLIED")
	}
	run.Annotate(observability.F("order_id", updated.ID))
	return &WebhookResult{Outcome: outcome, Event: evt, Order: updated}, nil
}
