package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/observability"
	"github.com/Zhima-Mochi/artisanmart/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"

	orderNumberAttempts = 5
	cartClearTimeout    = 5 * time.Second
)

// CreateOrderUseCase turns a cart checkout into a placed order with its stock reserved.
type CreateOrderUseCase struct {
	repo     domain.Repository
	products inventory.ProductStore
	carts    inventory.CartStore
	ledger   *inventory.Ledger
	methods  MethodResolver
	pricing  domain.Pricing
	ids      application.IDGenerator
	numbers  OrderNumberGenerator
	clock    application.Clock
	effects  application.Effects
	inst     application.Instrument

	background sync.WaitGroup
}

type CreateDeps struct {
	Repo     domain.Repository
	Products inventory.ProductStore
	Carts    inventory.CartStore
	Methods  MethodResolver
	Pricing  domain.Pricing
	IDs      application.IDGenerator
	Numbers  OrderNumberGenerator
	Clock    application.Clock
	Effects  application.Effects
}

func NewCreateOrderUseCase(deps CreateDeps, tel observability.Observability) *CreateOrderUseCase {
	if deps.Clock == nil {
		deps.Clock = application.SystemClock{}
	}
	ledger := deps.Effects.Ledger
	if ledger == nil {
		ledger = inventory.NewLedger(deps.Products)
	}
	return &CreateOrderUseCase{
		repo:     deps.Repo,
		products: deps.Products,
		carts:    deps.Carts,
		ledger:   ledger,
		methods:  deps.Methods,
		pricing:  deps.Pricing,
		ids:      deps.IDs,
		numbers:  deps.Numbers,
		clock:    deps.Clock,
		effects:  deps.Effects,
		inst:     application.NewInstrument(tel, orderService),
	}
}

type LineInput struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	BuyerID         string
	Items           []LineInput
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	PaymentMethod   string
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.buyer_id", cmd.BuyerID),
		attribute.String("order.payment_method", cmd.PaymentMethod),
		attribute.Int("order.line_count", len(cmd.Items)),
	)
	defer func() { run.End(err) }()

	if strings.TrimSpace(cmd.BuyerID) == "" {
		run.Fail("BUYER_ID_REQUIRED")
		return nil, domain.Validation("buyer id is required")
	}
	lines, err := mergeLines(cmd.Items)
	if err != nil {
		run.Fail("ITEMS_INVALID")
		return nil, err
	}
	method := strings.ToLower(strings.TrimSpace(cmd.PaymentMethod))
	if _, rerr := uc.methods.Resolve(method); rerr != nil {
		run.Fail("PAYMENT_METHOD_UNSUPPORTED")
		return nil, domain.Validation("payment method %q is not supported", cmd.PaymentMethod)
	}

	items, err := uc.snapshotItems(ctx, lines)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrProductNotFound), errors.Is(err, inventory.ErrProductInactive):
			run.Fail("PRODUCT_NOT_FOUND")
		case errors.Is(err, inventory.ErrInsufficientStock):
			run.Fail("INSUFFICIENT_STOCK")
		case errors.Is(err, domain.ErrValidation):
			run.Fail("ITEMS_INVALID")
		default:
			run.Fail("CATALOG_LOOKUP_FAILED")
		}
		return nil, err
	}

	now := uc.clock.Now()
	entity, err := domain.New(domain.NewParams{
		ID:              uc.ids.NewID(),
		OrderNumber:     uc.numbers.NewOrderNumber(),
		BuyerID:         cmd.BuyerID,
		Items:           items,
		ShippingAddress: cmd.ShippingAddress,
		BillingAddress:  cmd.BillingAddress,
		PaymentMethod:   method,
		Pricing:         uc.pricing,
		Now:             now,
	})
	if err != nil {
		run.Fail("ORDER_INVALID")
		return nil, err
	}

	if err := uc.ledger.Reserve(ctx, entity.Lines()); err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			run.Fail("INSUFFICIENT_STOCK")
		} else {
			run.Fail("STOCK_RESERVE_FAILED")
		}
		return nil, fmt.Errorf("ledger.Reserve: %w", err)
	}
	run.Span().AddEvent("stock.reserved")

	if err := uc.insert(ctx, entity); err != nil {
		if rerr := uc.ledger.Restore(context.WithoutCancel(ctx), entity.Lines()); rerr != nil {
			run.Logger().Error("stock_restore_failed",
				observability.F("order_id", entity.ID),
				observability.Err(rerr),
			)
			err = errors.Join(err, rerr)
		}
		run.Fail("REPO_INSERT_FAILED")
		return nil, application.WrapRepositoryError("repo.Insert", err)
	}

	uc.clearCart(ctx, entity.BuyerID)

	created := domain.Change{
		Action:      "order.create",
		FromStatus:  entity.Status,
		ToStatus:    entity.Status,
		FromPayment: entity.PaymentStatus,
		ToPayment:   entity.PaymentStatus,
		Note:        "order placed",
	}
	if aerr := uc.effects.Record(ctx, entity, created, application.Actor{UserID: entity.BuyerID}); aerr != nil {
		run.Status("AUDIT_RECORD_FAILED")
	}
	if perr := uc.effects.Publish(ctx, domain.NewOrderCreatedEvent(entity)); perr != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.Annotate(observability.F("event_publish_error", perr.Error()))
	}

	run.Annotate(
		observability.F("order_id", entity.ID),
		observability.F("order_number", entity.OrderNumber),
		observability.F("total", entity.Total),
	)
	run.Span().SetAttributes(attribute.String("order.status", string(entity.Status)))
	run.Span().AddEvent("order.created",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)
	return entity, nil
}

// insert retries with a fresh order number while the number collides.
func (uc *CreateOrderUseCase) insert(ctx context.Context, entity *domain.Order) error {
	var err error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		if err = uc.repo.Insert(ctx, entity); err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		logctx.FromOr(ctx, uc.inst.Logger()).Warn("order_number_collision",
			observability.F("order_number", entity.OrderNumber),
			observability.F("attempt", attempt),
		)
		entity.OrderNumber = uc.numbers.NewOrderNumber()
	}
	return err
}

func (uc *CreateOrderUseCase) snapshotItems(ctx context.Context, lines []LineInput) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(lines))
	for _, line := range lines {
		p, err := uc.products.FindActiveByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		if strings.TrimSpace(p.SellerID) == "" {
			return nil, domain.Validation("product %s has no seller", p.ID)
		}
		if p.Stock < line.Quantity {
			return nil, &inventory.InsufficientStockError{ProductID: p.ID, Requested: line.Quantity, Available: p.Stock}
		}
		items = append(items, domain.Item{
			ProductID: p.ID,
			SellerID:  p.SellerID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Quantity:  line.Quantity,
			ImageRef:  p.ImageRef,
		})
	}
	return items, nil
}

// clearCart runs detached from the request; a failure never affects the placed order.
func (uc *CreateOrderUseCase) clearCart(ctx context.Context, buyerID string) {
	if uc.carts == nil {
		return
	}
	logger := logctx.FromOr(ctx, uc.inst.Logger())
	detached := context.WithoutCancel(ctx)

	uc.background.Add(1)
	go func() {
		defer uc.background.Done()
		cctx, cancel := context.WithTimeout(detached, cartClearTimeout)
		defer cancel()
		if err := uc.carts.ClearForUser(cctx, buyerID); err != nil {
			logger.Warn("cart_clear_failed",
				observability.F("buyer_id", buyerID),
				observability.Err(err),
			)
		}
	}()
}

// Wait blocks until background cart clears have finished.
func (uc *CreateOrderUseCase) Wait() {
	uc.background.Wait()
}

// mergeLines folds repeated product lines together, keeping first-seen order.
func mergeLines(in []LineInput) ([]LineInput, error) {
	if len(in) == 0 {
		return nil, domain.Validation("order must contain at least one item")
	}
	index := make(map[string]int, len(in))
	out := make([]LineInput, 0, len(in))
	for _, l := range in {
		id := strings.TrimSpace(l.ProductID)
		if id == "" {
			return nil, domain.Validation("item product id is required")
		}
		if l.Quantity <= 0 {
			return nil, domain.Validation("quantity for product %s must be greater than zero", id)
		}
		if i, seen := index[id]; seen {
			out[i].Quantity += l.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, LineInput{ProductID: id, Quantity: l.Quantity})
	}
	return out, nil
}

var _ application.UseCase[CreateOrderInput, *domain.Order] = (*CreateOrderUseCase)(nil)

var _ MethodResolver = (*payment.Registry)(nil)
