package outbox_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domoutbox "github.com/Zhima-Mochi/artisanmart/internal/domain/outbox"
	"github.com/Zhima-Mochi/artisanmart/internal/infrastructure/outbox"
)

type testEvent struct {
	name string
	seq  int
}

func (e testEvent) EventName() string { return e.name }

func TestBus_FanoutToEverySubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := outbox.NewBus(nil)
	var first, second atomic.Int32
	bus.Subscribe("order.status_changed", func(context.Context, domoutbox.Event) error {
		first.Add(1)
		return nil
	})
	bus.Subscribe("order.status_changed", func(context.Context, domoutbox.Event) error {
		second.Add(1)
		return errors.New("handler failure is logged, not propagated")
	})

	ctx := context.Background()
	bus.Start(ctx)
	for i := range 10 {
		require.NoError(t, bus.Publish(ctx, testEvent{name: "order.status_changed", seq: i}))
	}
	require.NoError(t, bus.Publish(ctx, testEvent{name: "nobody.listens"}))
	bus.Stop(ctx)

	assert.Equal(t, int32(10), first.Load())
	assert.Equal(t, int32(10), second.Load())
}

func TestBus_PanickingHandlerDoesNotKillLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := outbox.NewBus(nil)
	var mu sync.Mutex
	var seen []int
	bus.Subscribe("evt", func(_ context.Context, e domoutbox.Event) error {
		if e.(testEvent).seq == 0 {
			panic("boom")
		}
		mu.Lock()
		seen = append(seen, e.(testEvent).seq)
		mu.Unlock()
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, testEvent{name: "evt", seq: 0}))
	require.NoError(t, bus.Publish(ctx, testEvent{name: "evt", seq: 1}))
	bus.Stop(ctx)

	assert.Equal(t, []int{1}, seen)
}

func TestBus_PublishAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := outbox.NewBus(nil)
	ctx := context.Background()
	bus.Start(ctx)
	bus.Stop(ctx)
	bus.Stop(ctx)

	require.ErrorIs(t, bus.Publish(ctx, testEvent{name: "evt"}), outbox.ErrStopped)
	assert.NoError(t, bus.Publish(ctx, nil))
}

func TestBus_StopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := outbox.NewBus(nil)
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, testEvent{name: "evt"}))
	bus.Stop(ctx)

	// Start after Stop must not spawn a loop over the closed queue.
	bus.Start(ctx)
	require.ErrorIs(t, bus.Publish(ctx, testEvent{name: "evt"}), outbox.ErrStopped)
}

func TestBus_HandlersRunDetachedFromStartContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := outbox.NewBus(nil)
	errc := make(chan error, 1)
	bus.Subscribe("evt", func(ctx context.Context, _ domoutbox.Event) error {
		errc <- ctx.Err()
		return nil
	})

	startCtx, cancel := context.WithCancel(context.Background())
	bus.Start(startCtx)
	cancel()

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "evt"}))
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
	bus.Stop(context.Background())
}
