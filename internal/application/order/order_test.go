package order_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"github.com/Zhima-Mochi/artisanmart/internal/application"
	apporder "github.com/Zhima-Mochi/artisanmart/internal/application/order"
	domaudit "github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/payment"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/id"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/cod"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/payment/razorpay"
)

type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []outbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e outbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Map(p.events, func(e outbox.Event, _ int) string { return e.EventName() })
}

type orderSuite struct {
	suite.Suite

	products  *memory.ProductStore
	carts     *memory.CartStore
	repo      *memory.OrderRepository
	audit     *memory.AuditSink
	publisher *recordingPublisher

	create *apporder.CreateOrderUseCase
	cancel *apporder.CancelOrderUseCase
	update *apporder.UpdateStatusUseCase
	get    *apporder.GetOrderUseCase
	list   *apporder.ListMyOrdersUseCase

	buyer string
	admin application.Actor
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(orderSuite))
}

func (s *orderSuite) SetupTest() {
	s.products = memory.NewProductStore(
		inventory.Product{ID: "p1", SellerID: "s1", Name: "Hand-thrown mug", UnitPrice: 125, Stock: 5, Active: true},
		inventory.Product{ID: "p2", SellerID: "s2", Name: "Linen scarf", UnitPrice: 600, Stock: 1, Active: true},
		inventory.Product{ID: "p3", SellerID: "s1", Name: "Retired print", UnitPrice: 80, Stock: 3, Active: false},
	)
	s.carts = memory.NewCartStore()
	s.repo = memory.NewOrderRepository()
	s.audit = memory.NewAuditSink()
	s.publisher = &recordingPublisher{}
	s.buyer = uuid.NewString()
	s.admin = application.Actor{UserID: "ops", Admin: true}

	clock := &tickingClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	effects := application.Effects{
		Ledger:    inventory.NewLedger(s.products),
		Audit:     s.audit,
		Publisher: s.publisher,
		IDs:       id.NewUUIDGenerator(),
		Clock:     clock,
		Inst:      application.NewInstrument(nil, "order-effects"),
	}
	registry := payment.NewRegistry(razorpay.New(razorpay.Config{}, nil), cod.New())

	s.create = apporder.NewCreateOrderUseCase(apporder.CreateDeps{
		Repo:     s.repo,
		Products: s.products,
		Carts:    s.carts,
		Methods:  registry,
		Pricing:  domorder.DefaultPricing(),
		IDs:      id.NewUUIDGenerator(),
		Numbers:  id.NewOrderNumberGenerator(),
		Clock:    clock,
		Effects:  effects,
	}, nil)
	s.cancel = apporder.NewCancelOrderUseCase(s.repo, effects, clock, nil)
	s.update = apporder.NewUpdateStatusUseCase(s.repo, effects, clock, nil)
	s.get = apporder.NewGetOrderUseCase(s.repo, nil)
	s.list = apporder.NewListMyOrdersUseCase(s.repo, nil)
}

func (s *orderSuite) input(method string, lines ...apporder.LineInput) apporder.CreateOrderInput {
	a := gofakeit.Address()
	return apporder.CreateOrderInput{
		BuyerID: s.buyer,
		Items:   lines,
		ShippingAddress: domorder.Address{
			Name:       gofakeit.Name(),
			Line1:      a.Street,
			City:       a.City,
			PostalCode: a.Zip,
			Country:    "IN",
		},
		PaymentMethod: method,
	}
}

func (s *orderSuite) place(method string, lines ...apporder.LineInput) *domorder.Order {
	s.T().Helper()
	o, err := s.create.Execute(context.Background(), s.input(method, lines...))
	s.Require().NoError(err)
	return o
}

func (s *orderSuite) stock(productID string) int {
	p, err := s.products.Get(context.Background(), productID)
	s.Require().NoError(err)
	return p.Stock
}

func (s *orderSuite) advance(orderID string, statuses ...domorder.Status) *domorder.Order {
	s.T().Helper()
	var o *domorder.Order
	for _, st := range statuses {
		var err error
		o, err = s.update.Execute(context.Background(), apporder.UpdateStatusInput{
			OrderID: orderID,
			Actor:   s.admin,
			Status:  string(st),
		})
		s.Require().NoError(err, "advance to %s", st)
	}
	return o
}

func (s *orderSuite) TestCreate_PricesReservesAndAudits() {
	s.carts.Add(s.buyer, "p1", 2)

	o := s.place("Razorpay-Card", apporder.LineInput{ProductID: "p1", Quantity: 2})

	s.Equal(int64(250), o.Subtotal)
	s.Equal(int64(50), o.ShippingCost)
	s.Equal(int64(13), o.Tax)
	s.Equal(int64(313), o.Total)
	s.Equal(domorder.StatusPlaced, o.Status)
	s.Equal(payment.StatusPending, o.PaymentStatus)
	s.Equal("razorpay-card", o.PaymentMethod)
	s.Equal("s1", o.Items[0].SellerID)
	s.Equal(3, s.stock("p1"))

	s.create.Wait()
	s.Empty(s.carts.Items(s.buyer))

	entries := s.audit.ForOrder(o.ID)
	s.Require().Len(entries, 1)
	s.Equal("order.create", entries[0].Action)
	s.Equal("buyer:"+s.buyer, entries[0].Actor)
	s.Equal([]string{"order.created"}, s.publisher.names())
}

func (s *orderSuite) TestCreate_MergesRepeatedLines() {
	o := s.place("cod",
		apporder.LineInput{ProductID: "p1", Quantity: 1},
		apporder.LineInput{ProductID: "p2", Quantity: 1},
		apporder.LineInput{ProductID: "p1", Quantity: 2},
	)

	s.Require().Len(o.Items, 2)
	s.Equal("p1", o.Items[0].ProductID)
	s.Equal(3, o.Items[0].Quantity)
	s.Equal(int64(975), o.Subtotal)
	s.Equal(2, s.stock("p1"))
	s.Equal(0, s.stock("p2"))
}

func (s *orderSuite) TestCreate_Rejections() {
	ctx := context.Background()
	tests := []struct {
		name   string
		mutate func(*apporder.CreateOrderInput)
		want   error
	}{
		{"missing buyer", func(in *apporder.CreateOrderInput) { in.BuyerID = " " }, domorder.ErrValidation},
		{"no items", func(in *apporder.CreateOrderInput) { in.Items = nil }, domorder.ErrValidation},
		{"zero quantity", func(in *apporder.CreateOrderInput) { in.Items[0].Quantity = 0 }, domorder.ErrValidation},
		{"unknown method", func(in *apporder.CreateOrderInput) { in.PaymentMethod = "bitcoin" }, domorder.ErrValidation},
		{"bare gateway name", func(in *apporder.CreateOrderInput) { in.PaymentMethod = "razorpay" }, domorder.ErrValidation},
		{"unknown product", func(in *apporder.CreateOrderInput) { in.Items[0].ProductID = "nope" }, inventory.ErrProductNotFound},
		{"inactive product", func(in *apporder.CreateOrderInput) { in.Items[0].ProductID = "p3" }, inventory.ErrProductInactive},
		{"insufficient stock", func(in *apporder.CreateOrderInput) { in.Items[0].Quantity = 6 }, inventory.ErrInsufficientStock},
		{"missing address", func(in *apporder.CreateOrderInput) { in.ShippingAddress = domorder.Address{} }, domorder.ErrValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := s.input("cod", apporder.LineInput{ProductID: "p1", Quantity: 1})
			tt.mutate(&in)

			_, err := s.create.Execute(ctx, in)
			s.Require().ErrorIs(err, tt.want)
			s.Equal(5, s.stock("p1"), "stock must be untouched")
		})
	}

	orders, err := s.list.Execute(ctx, s.buyer)
	s.Require().NoError(err)
	s.Empty(orders)
}

func (s *orderSuite) TestCreate_LastUnitRace() {
	const buyers = 16
	var (
		wg         sync.WaitGroup
		succeeded  atomic.Int32
		outOfStock atomic.Int32
	)
	inputs := make([]apporder.CreateOrderInput, buyers)
	for i := range inputs {
		inputs[i] = s.input("cod", apporder.LineInput{ProductID: "p2", Quantity: 1})
		inputs[i].BuyerID = uuid.NewString()
	}
	for _, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.create.Execute(context.Background(), in)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, inventory.ErrInsufficientStock):
				outOfStock.Add(1)
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(int32(buyers-1), outOfStock.Load())
	s.Equal(0, s.stock("p2"))
}

func (s *orderSuite) TestCancel_RestoresStockOnce() {
	ctx := context.Background()
	o := s.place("cod", apporder.LineInput{ProductID: "p1", Quantity: 2})
	s.Equal(3, s.stock("p1"))

	cancelled, err := s.cancel.Execute(ctx, apporder.CancelOrderInput{OrderID: o.ID, BuyerID: s.buyer, Note: "changed my mind"})
	s.Require().NoError(err)
	s.Equal(domorder.StatusCancelled, cancelled.Status)
	s.NotNil(cancelled.CancelledAt)
	s.True(cancelled.StockRestored)
	s.Equal(5, s.stock("p1"))

	_, err = s.cancel.Execute(ctx, apporder.CancelOrderInput{OrderID: o.ID, BuyerID: s.buyer})
	s.Require().ErrorIs(err, domorder.ErrInvalidTransition)
	s.Equal(5, s.stock("p1"))

	actions := lo.Map(s.audit.ForOrder(o.ID), func(e domaudit.Entry, _ int) string { return e.Action })
	s.Equal([]string{"order.create", "order.cancel"}, actions)
	s.Contains(s.publisher.names(), "order.cancelled")
}

func (s *orderSuite) TestCancel_OtherBuyerSeesNotFound() {
	o := s.place("cod", apporder.LineInput{ProductID: "p1", Quantity: 1})

	_, err := s.cancel.Execute(context.Background(), apporder.CancelOrderInput{OrderID: o.ID, BuyerID: "someone-else"})
	s.Require().ErrorIs(err, domorder.ErrNotFound)

	_, err = s.cancel.Execute(context.Background(), apporder.CancelOrderInput{OrderID: o.ID})
	s.Require().ErrorIs(err, domorder.ErrValidation)
}

func (s *orderSuite) TestCancel_AfterShipmentLeavesOrderUntouched() {
	ctx := context.Background()
	o := s.place("cod", apporder.LineInput{ProductID: "p1", Quantity: 1})
	s.advance(o.ID, domorder.StatusConfirmed, domorder.StatusProcessing, domorder.StatusPacked, domorder.StatusShipped)

	before, err := s.repo.Get(ctx, o.ID)
	s.Require().NoError(err)
	auditBefore := len(s.audit.ForOrder(o.ID))

	_, err = s.cancel.Execute(ctx, apporder.CancelOrderInput{OrderID: o.ID, BuyerID: s.buyer})
	var transitionErr *domorder.InvalidTransitionError
	s.Require().ErrorAs(err, &transitionErr)
	s.Equal(domorder.StatusShipped, transitionErr.From)

	after, err := s.repo.Get(ctx, o.ID)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(before, after))
	s.Len(s.audit.ForOrder(o.ID), auditBefore)
	s.Equal(4, s.stock("p1"))
}

func (s *orderSuite) TestUpdateStatus() {
	ctx := context.Background()
	o := s.place("cod", apporder.LineInput{ProductID: "p1", Quantity: 1})

	s.Run("buyer is forbidden", func() {
		_, err := s.update.Execute(ctx, apporder.UpdateStatusInput{
			OrderID: o.ID,
			Actor:   application.Actor{UserID: s.buyer},
			Status:  "confirmed",
		})
		s.Require().ErrorIs(err, domorder.ErrForbidden)
	})

	s.Run("unknown status", func() {
		_, err := s.update.Execute(ctx, apporder.UpdateStatusInput{OrderID: o.ID, Actor: s.admin, Status: "teleported"})
		s.Require().ErrorIs(err, domorder.ErrValidation)
	})

	s.Run("skipping ahead", func() {
		_, err := s.update.Execute(ctx, apporder.UpdateStatusInput{OrderID: o.ID, Actor: s.admin, Status: "delivered"})
		s.Require().ErrorIs(err, domorder.ErrInvalidTransition)
	})

	s.Run("missing order", func() {
		_, err := s.update.Execute(ctx, apporder.UpdateStatusInput{OrderID: "missing", Actor: s.admin, Status: "confirmed"})
		s.Require().ErrorIs(err, domorder.ErrNotFound)
	})

	s.Run("cash on delivery is paid at delivery", func() {
		s.advance(o.ID, domorder.StatusConfirmed, domorder.StatusProcessing, domorder.StatusPacked)
		shipped, err := s.update.Execute(ctx, apporder.UpdateStatusInput{
			OrderID:  o.ID,
			Actor:    s.admin,
			Status:   "shipped",
			Tracking: &domorder.Tracking{Carrier: "BlueDart", TrackingNumber: "BD123"},
		})
		s.Require().NoError(err)
		s.Require().NotNil(shipped.Tracking)
		s.Equal("BD123", shipped.Tracking.TrackingNumber)

		delivered := s.advance(o.ID, domorder.StatusOutForDelivery, domorder.StatusDelivered)
		s.Equal(domorder.StatusDelivered, delivered.Status)
		s.Equal(payment.StatusPaid, delivered.PaymentStatus)
		s.Equal(delivered.Total, delivered.AmountPaid)
		s.NotNil(delivered.DeliveredAt)
		s.Contains(s.publisher.names(), "order.payment_updated")
	})
}

func (s *orderSuite) TestUpdateStatus_AdminCancelRestoresStock() {
	o := s.place("cod", apporder.LineInput{ProductID: "p1", Quantity: 2})
	s.advance(o.ID, domorder.StatusConfirmed, domorder.StatusProcessing)

	cancelled := s.advance(o.ID, domorder.StatusCancelled)
	s.Equal(domorder.StatusCancelled, cancelled.Status)
	s.Equal(5, s.stock("p1"))

	entries := s.audit.ForOrder(o.ID)
	s.Equal("admin:ops", entries[len(entries)-1].Actor)
}

func (s *orderSuite) TestGetAndList() {
	ctx := context.Background()
	first := s.place("cod", apporder.LineInput{ProductID: "p1", Quantity: 1})
	second := s.place("razorpay-upi", apporder.LineInput{ProductID: "p1", Quantity: 1})

	got, err := s.get.Execute(ctx, apporder.GetOrderInput{OrderID: first.ID, Actor: application.Actor{UserID: s.buyer}})
	s.Require().NoError(err)
	s.Equal(first.OrderNumber, got.OrderNumber)

	_, err = s.get.Execute(ctx, apporder.GetOrderInput{OrderID: first.ID, Actor: application.Actor{UserID: "stranger"}})
	s.Require().ErrorIs(err, domorder.ErrNotFound)

	_, err = s.get.Execute(ctx, apporder.GetOrderInput{OrderID: first.ID, Actor: s.admin})
	s.Require().NoError(err)

	mine, err := s.list.Execute(ctx, s.buyer)
	s.Require().NoError(err)
	s.Equal([]string{second.ID, first.ID}, lo.Map(mine, func(o *domorder.Order, _ int) string { return o.ID }))

	_, err = s.list.Execute(ctx, "")
	s.Require().ErrorIs(err, domorder.ErrValidation)
}
