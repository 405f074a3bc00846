package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis-hud/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.Default())
}

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now()}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventPromptResponse {
			got.Add(1)
		}
	})
	bus.Subscribe(domain.EventHistoryPruned, func(_ context.Context, _ domain.Event) {
		t.Error("typed subscriber received foreign event")
	})

	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	bus.Close() // drain
	assert.Equal(t, int32(1), got.Load())
}

func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	bus.Publish(context.Background(), newEvent(domain.EventClientConnected))
	bus.Close()

	assert.Equal(t, int32(2), got.Load())
}

func TestPublishPreservesOrder(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	var seen []string
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		// A slow handler must not reorder later events.
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen = append(seen, e.ID)
		mu.Unlock()
	})

	var want []string
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("ev-%02d", i)
		want = append(want, id)
		ev := newEvent(domain.EventPromptResponse)
		ev.ID = id
		bus.Publish(context.Background(), ev)
	}
	bus.Close()

	assert.Equal(t, want, seen)
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	unsubAll := bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(10)
	})

	unsub()
	unsubAll()
	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	bus.Close()

	assert.Equal(t, int32(0), got.Load())
}

func TestConcurrentPublish(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
		}()
	}
	wg.Wait()
	bus.Close()

	assert.Equal(t, int32(100), got.Load())
}

func TestPanicRecovery(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, e domain.Event) {
		if e.ID == "first" {
			panic("boom")
		}
		got.Add(100)
	})
	bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	first := newEvent(domain.EventPromptResponse)
	first.ID = "first"
	bus.Publish(context.Background(), first)
	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	bus.Close()

	// The panicking subscriber keeps receiving after recovery.
	assert.Equal(t, int32(102), got.Load())
}

func TestCloseDrainsAndRejectsNew(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventPromptResponse, func(_ context.Context, _ domain.Event) {
		time.Sleep(50 * time.Millisecond)
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	bus.Close() // blocks until both are handled
	require.Equal(t, int32(2), got.Load())

	bus.Publish(context.Background(), newEvent(domain.EventPromptResponse))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), got.Load())

	bus.Close() // idempotent
}
