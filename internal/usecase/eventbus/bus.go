// Package eventbus is the relay's in-process pub/sub. Each subscription has
// its own mailbox drained by one goroutine, so a subscriber sees events in
// publish order while a slow subscriber never blocks the publisher.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"jarvis-hud/internal/domain"
)

type delivery struct {
	ctx   context.Context
	event domain.Event
}

type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []delivery
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(d delivery) {
	m.mu.Lock()
	if !m.closed {
		m.queue = append(m.queue, d)
		m.cond.Signal()
	}
	m.mu.Unlock()
}

// close stops accepting deliveries; queued ones are still handed out.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *mailbox) pop() (delivery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return delivery{}, false
	}
	d := m.queue[0]
	m.queue[0] = delivery{}
	m.queue = m.queue[1:]
	return d, true
}

type subscription struct {
	id      uint64
	handler domain.EventHandler
	box     *mailbox
}

// Bus is an in-process, goroutine-safe, order-preserving event bus.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]*subscription
	allSubs []*subscription
	nextID  atomic.Uint64
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		typed:  make(map[domain.EventType][]*subscription),
		logger: logger,
	}
}

// Publish queues event for every matching typed subscriber and every
// all-event subscriber. It does not wait for handlers.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	d := delivery{ctx: ctx, event: event}
	for _, sub := range b.typed[event.Type] {
		sub.box.push(d)
	}
	for _, sub := range b.allSubs {
		sub.box.push(d)
	}
}

func (b *Bus) start(handler domain.EventHandler) *subscription {
	sub := &subscription{
		id:      b.nextID.Add(1),
		handler: handler,
		box:     newMailbox(),
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			d, ok := sub.box.pop()
			if !ok {
				return
			}
			b.deliver(sub, d)
		}
	}()
	return sub
}

func (b *Bus) deliver(sub *subscription, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(d.event.Type),
				"subscription", sub.id,
				"panic", r,
			)
		}
	}()
	sub.handler(d.ctx, d.event)
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function; events already queued are still delivered.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	sub := b.start(handler)

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.typed[eventType] = remove(b.typed[eventType], sub.id)
		b.mu.Unlock()
		sub.box.close()
	}
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	sub := b.start(handler)

	b.mu.Lock()
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.allSubs = remove(b.allSubs, sub.id)
		b.mu.Unlock()
		sub.box.close()
	}
}

func remove(subs []*subscription, id uint64) []*subscription {
	for i, s := range subs {
		if s.id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Close prevents new publishes and waits until every queued event has been handled.
// Close is idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	for _, subs := range b.typed {
		for _, s := range subs {
			s.box.close()
		}
	}
	for _, s := range b.allSubs {
		s.box.close()
	}
	b.mu.Unlock()
	b.wg.Wait()
}
