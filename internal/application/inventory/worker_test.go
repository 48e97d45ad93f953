package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/Zhima-Mochi/artisanmart/internal/application/inventory"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/artisanmart/internal/domain/order"
	"github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/memory"
)

type subscriberFunc func(string, outbox.Handler)

func (f subscriberFunc) Subscribe(name string, h outbox.Handler) { f(name, h) }

func TestSalesCountWorker(t *testing.T) {
	products := memory.NewProductStore(
		inventory.Product{ID: "p1", SellerID: "s1", UnitPrice: 100, Stock: 5, Active: true},
		inventory.Product{ID: "p2", SellerID: "s1", UnitPrice: 100, Stock: 5, Active: true, SalesCount: 7},
	)
	w := appinventory.NewSalesCountWorker(products, nil)

	var handler outbox.Handler
	w.Start(subscriberFunc(func(name string, h outbox.Handler) {
		assert.Equal(t, "order.created", name)
		handler = h
	}))
	require.NotNil(t, handler)

	evt := domorder.OrderCreatedEvent{
		OrderID: "o1",
		Items: []domorder.Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	}
	require.NoError(t, handler(context.Background(), evt))

	p1, err := products.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p1.SalesCount)
	p2, err := products.Get(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, int64(8), p2.SalesCount)
	assert.Equal(t, 5, p1.Stock, "sales count never touches stock")

	missing := domorder.OrderCreatedEvent{OrderID: "o2", Items: []domorder.Item{{ProductID: "gone", Quantity: 1}}}
	require.ErrorIs(t, w.HandleOrderCreated(context.Background(), missing), inventory.ErrProductNotFound)

	assert.NoError(t, w.HandleOrderCreated(context.Background(), domorder.OrderCancelledEvent{}))
}
