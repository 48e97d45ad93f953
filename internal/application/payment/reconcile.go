package payment

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
)

// applier is the single path through which every payment observation reaches an order,
// whether it came from a webhook, a verify poll or a refund confirmation.
type applier struct {
	repo    domorder.Repository
	effects application.Effects
}

// apply reports applied=false when the update was already recorded or would regress the order.
func (a applier) apply(ctx context.Context, orderID string, u domorder.PaymentUpdate, actor application.Actor) (_ *domorder.Order, applied bool, _ error) {
	var change domorder.Change
	updated, err := a.repo.Mutate(ctx, orderID, func(o *domorder.Order) error {
		c, aerr := o.ApplyPayment(u)
		if aerr != nil {
			return aerr
		}
		change = c
		return nil
	})
	if errors.Is(err, domorder.ErrIdempotentNoop) {
		return updated, false, nil
	}
	if err != nil {
		return nil, false, application.WrapRepositoryError("repo.Mutate", err)
	}
	a.effects.After(ctx, updated, change, actor)
	return updated, true, nil
}

// gatewayFor resolves the order's gateway and, on a per-gateway route, checks it matches.
func gatewayFor(gws Gateways, o *domorder.Order, route string) (payment.Gateway, error) {
	gw, err := gws.Resolve(o.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if route != "" && gw.Name() != route {
		return nil, domorder.Validation("order is paid with %s, not %s", gw.Name(), route)
	}
	return gw, nil
}
