package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	cfg := DefaultConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestInMemoryEventBus_RoutesByEventType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var extended, broken int
	require.NoError(t, bus.Subscribe(shared.EventStreakExtended, func(shared.Event) error {
		extended++
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventStreakBroken, func(shared.Event) error {
		broken++
		return nil
	}))

	event := shared.StreakExtendedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventStreakExtended, "user-1"),
		UserID:        "user-1",
		CurrentStreak: 7,
	}
	require.NoError(t, bus.Publish(event))
	require.NoError(t, bus.Publish(event))

	assert.Equal(t, 2, extended)
	assert.Equal(t, 0, broken)
}

func TestInMemoryEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var seen []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		seen = append(seen, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.StreakExtendedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStreakExtended, "user-1"),
	}))
	require.NoError(t, bus.Publish(shared.StreakBrokenEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStreakBroken, "user-1"),
	}))

	assert.Equal(t, []shared.EventType{shared.EventStreakExtended, shared.EventStreakBroken}, seen)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var called bool
	require.NoError(t, bus.Subscribe(shared.EventStreakExtended, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventStreakExtended, func(shared.Event) error {
		called = true
		return nil
	}))

	require.NoError(t, bus.Publish(shared.StreakExtendedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStreakExtended, "user-1"),
	}))
	assert.True(t, called)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.InDelta(t, 0.5, snap.HandlerSuccessRate, 0.001)
}

func TestInMemoryEventBus_PanickingHandlerIsRecovered(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventStreakExtended, func(shared.Event) error {
		panic("handler bug")
	}))

	assert.NotPanics(t, func() {
		_ = bus.Publish(shared.StreakExtendedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventStreakExtended, "user-1"),
		})
	})
}

func TestInMemoryEventBus_AsyncDeliversBeforeClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerPoolSize = 4
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	count := 0
	require.NoError(t, bus.Subscribe(shared.EventStreakExtended, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.StreakExtendedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventStreakExtended, "user-1"),
		}))
	}

	// Close waits for queued handlers.
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count)
}

func TestInMemoryEventBus_ClosedBusRejectsWork(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.StreakExtendedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStreakExtended, "user-1"),
	})
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventStreakExtended, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
