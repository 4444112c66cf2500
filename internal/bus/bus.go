// Package bus hands events from the network goroutine to a consumer goroutine.
//
// The producer side (Publish) appends to a single mutex protected queue and
// never blocks. The consumer side (Drain or Run) pops the queue and invokes
// subscribers in publish order, so the total order of events across kinds
// matches the order lines arrived on the wire.
package bus

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobbyclient/internal/core"
)

// Handler receives one event on the consumer goroutine. Handlers run with
// exclusive access to consumer-owned state and must return quickly.
type Handler func(core.Event)

// Subscription identifies a registered handler.
type Subscription struct {
	id   uint64
	kind core.EventKind
	all  bool
}

type subscriber struct {
	id uint64
	h  Handler
}

// Bus is a per-kind observer registry in front of an ordered event queue.
type Bus struct {
	queueMu sync.Mutex
	queue   []core.Event
	seq     uint64
	ready   chan struct{}
	wake    func()
	now     func() time.Time

	subsMu  sync.RWMutex
	byKind  map[core.EventKind][]subscriber
	all     []subscriber
	nextID  uint64
	drainMu sync.Mutex
	log     *zerolog.Logger
}

// Option customises a Bus.
type Option func(*Bus)

// WithWake injects an extra wake-up hook called after every Publish, for
// consumers that run their own loop (e.g. a UI toolkit's awake call).
func WithWake(fn func()) Option {
	return func(b *Bus) { b.wake = fn }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates an empty bus.
func New(logger *zerolog.Logger, opts ...Option) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	b := &Bus{
		ready:  make(chan struct{}, 1),
		now:    time.Now,
		byKind: make(map[core.EventKind][]subscriber),
		log:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers h for one event kind. Handlers of the same kind run in
// registration order.
func (b *Bus) Subscribe(kind core.EventKind, h Handler) Subscription {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.nextID++
	b.byKind[kind] = append(b.byKind[kind], subscriber{id: b.nextID, h: h})
	return Subscription{id: b.nextID, kind: kind}
}

// SubscribeAll registers h for every event kind. Catch-all handlers run
// after the kind-specific ones.
func (b *Bus) SubscribeAll(h Handler) Subscription {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	b.nextID++
	b.all = append(b.all, subscriber{id: b.nextID, h: h})
	return Subscription{id: b.nextID, all: true}
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	match := func(s subscriber) bool { return s.id == sub.id }
	if sub.all {
		b.all = slices.DeleteFunc(b.all, match)
		return
	}
	b.byKind[sub.kind] = slices.DeleteFunc(b.byKind[sub.kind], match)
}

// Publish enqueues an event and wakes the consumer. It never blocks on
// consumers and is safe to call from any goroutine.
func (b *Bus) Publish(ev core.Event) {
	b.queueMu.Lock()
	b.seq++
	ev.Seq = b.seq
	if ev.At.IsZero() {
		ev.At = b.now()
	}
	b.queue = append(b.queue, ev)
	b.queueMu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
	if b.wake != nil {
		b.wake()
	}
}

// Ready is signalled after Publish; a consumer loop waits on it and then drains.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

// Drain delivers every queued event in publish order and returns how many
// were delivered. Concurrent drains are serialised.
func (b *Bus) Drain() int {
	b.drainMu.Lock()
	defer b.drainMu.Unlock()

	b.queueMu.Lock()
	batch := b.queue
	b.queue = nil
	b.queueMu.Unlock()

	for _, ev := range batch {
		b.dispatch(ev)
	}
	return len(batch)
}

// Run drains the queue whenever it is signalled, until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.ready:
			b.Drain()
		}
	}
}

func (b *Bus) dispatch(ev core.Event) {
	b.subsMu.RLock()
	handlers := make([]subscriber, 0, len(b.byKind[ev.Kind])+len(b.all))
	handlers = append(handlers, b.byKind[ev.Kind]...)
	handlers = append(handlers, b.all...)
	b.subsMu.RUnlock()

	for _, s := range handlers {
		b.call(s, ev)
	}
}

func (b *Bus) call(s subscriber, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("kind", ev.Kind.String()).
				Uint64("seq", ev.Seq).
				Msg("event handler panicked")
		}
	}()
	s.h(ev)
}
