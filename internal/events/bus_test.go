package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusDeliversInOrderToWildcard(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 64)
	var c Collector
	bus.Subscribe(Any, &c)

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(NewProgress("s1", "line %d", i)))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	lines := c.Lines()
	require.Len(t, lines, 20)
	for i, l := range lines {
		assert.Equal(t, fmt.Sprintf("line %d", i), l)
	}
}

func TestBusTypedSubscriptionAndUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	var warnings, all Collector
	sub := bus.Subscribe(Warning, &warnings)
	bus.Subscribe(Any, &all)

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, NewWarning("s", "price check failed")))
	require.NoError(t, bus.PublishSync(ctx, NewProgress("s", "uploading")))

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(ctx, NewWarning("s", "ignored")))

	assert.Equal(t, []string{"warning: price check failed"}, warnings.Lines())
	assert.Len(t, all.Events(), 3)
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(Progress, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), NewProgress("s", "x"))
	assert.ErrorIs(t, err, boom)
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(NewProgress("s", "late")), ErrBusClosed)
}

func TestSyncPublisherDeliversBeforeReturning(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	var c Collector
	bus.Subscribe(Any, &c)

	pub := bus.Sync()
	require.NoError(t, pub.Publish(NewProgress("s", "first")))
	assert.Equal(t, []string{"first"}, c.Lines())

	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, pub.Publish(NewProgress("s", "late")), ErrBusClosed)
}

func TestBusStats(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	defer bus.Shutdown(context.Background())
	bus.SubscribeFunc(StepConfirmed, func(context.Context, Event) error { return nil })

	stats := bus.Stats()
	assert.Equal(t, 4, stats["buffer_size"])
	assert.Equal(t, map[string]int{"step.confirmed": 1}, stats["handlers_per_type"])
}

func TestStatusRendering(t *testing.T) {
	hash := common.HexToHash("0x01")
	e := NewStepEvent(StepSubmitted, "s", 1, 5, "approve-wrapped", "approve")
	e.TxHash = hash
	assert.Equal(t, "[2/5] approve-wrapped: submitted "+hash.Hex()+", waiting for confirmation", e.Status())

	f := NewStepEvent(StepFailed, "s", 4, 5, "add-liquidity", "addLiquidity")
	f.Err = errors.New("reverted")
	assert.Equal(t, "[5/5] add-liquidity: failed: reverted", f.Status())

	w := NewWorkflowEvent(WorkflowStarted, "s", "launch", 5, nil)
	assert.Equal(t, "launch: starting (5 steps)", w.Status())
	assert.WithinDuration(t, time.Now(), w.Timestamp(), time.Minute)
	assert.Equal(t, "s", w.SessionID)
}
