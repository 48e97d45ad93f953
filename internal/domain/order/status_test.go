package order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/order"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from order.Status
		to   order.Status
		want bool
	}{
		{order.StatusPlaced, order.StatusConfirmed, true},
		{order.StatusPlaced, order.StatusShipped, false},
		{order.StatusConfirmed, order.StatusProcessing, true},
		{order.StatusProcessing, order.StatusPacked, true},
		{order.StatusPacked, order.StatusShipped, true},
		{order.StatusShipped, order.StatusOutForDelivery, true},
		{order.StatusShipped, order.StatusCancelled, true},
		{order.StatusOutForDelivery, order.StatusDelivered, true},
		{order.StatusOutForDelivery, order.StatusCancelled, true},
		{order.StatusDelivered, order.StatusReturned, true},
		{order.StatusDelivered, order.StatusCancelled, false},
		{order.StatusReturned, order.StatusRefunded, true},
		{order.StatusCancelled, order.StatusPlaced, false},
		{order.StatusRefunded, order.StatusReturned, false},
		{order.StatusConfirmed, order.StatusPlaced, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_CancelledAndRefundedAreFinal(t *testing.T) {
	all := []order.Status{
		order.StatusPlaced, order.StatusConfirmed, order.StatusProcessing, order.StatusPacked,
		order.StatusShipped, order.StatusOutForDelivery, order.StatusDelivered, order.StatusCancelled,
		order.StatusReturned, order.StatusRefunded,
	}
	for _, from := range []order.Status{order.StatusCancelled, order.StatusRefunded} {
		for _, to := range all {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := order.ParseStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, order.StatusOutForDelivery, s)

	_, err = order.ParseStatus("lost")
	require.Error(t, err)
}

func TestStatus_BuyerCancellable(t *testing.T) {
	assert.True(t, order.StatusPlaced.BuyerCancellable())
	assert.True(t, order.StatusConfirmed.BuyerCancellable())
	assert.False(t, order.StatusProcessing.BuyerCancellable())
	assert.False(t, order.StatusShipped.BuyerCancellable())
}
