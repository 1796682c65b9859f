package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the queue depth of a Bus created by NewBus.
const DefaultBufferSize = 256

// Handler is a function that handles events.
type Handler func(Event)

// Bus is a goroutine-safe event bus. Handlers run on a single dispatch
// goroutine, in publish order.
type Bus struct {
	handlersMu sync.RWMutex
	handlers   []Handler

	// sendMu guards closed and the send side of ch.
	sendMu sync.RWMutex
	closed bool
	ch     chan Event
	done   chan struct{}

	dropped atomic.Int64
	logger  *slog.Logger
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return NewBusSize(DefaultBufferSize, nil)
}

// NewBusSize creates a bus with the given queue depth. Dropped events are
// reported on logger when it is non-nil.
func NewBusSize(size int, logger *slog.Logger) *Bus {
	if size < 1 {
		size = 1
	}
	b := &Bus{
		ch:     make(chan Event, size),
		done:   make(chan struct{}),
		logger: logger,
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.done)
	for event := range b.ch {
		b.dispatch(event)
	}
}

func (b *Bus) dispatch(event Event) {
	b.handlersMu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.handlersMu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(event)
		}
	}
}

// Subscribe registers a handler to receive events.
// Returns an unsubscribe function. Once it returns, the handler sees no
// further events, including ones already queued.
func (b *Bus) Subscribe(h Handler) func() {
	b.handlersMu.Lock()
	b.handlers = append(b.handlers, h)
	idx := len(b.handlers) - 1
	b.handlersMu.Unlock()

	return func() {
		b.handlersMu.Lock()
		defer b.handlersMu.Unlock()
		// Nil rather than remove to keep indices stable
		if idx < len(b.handlers) {
			b.handlers[idx] = nil
		}
	}
}

// Publish queues an event without blocking. When the queue is full the
// event is dropped and counted.
func (b *Bus) Publish(event Event) {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- event:
	default:
		n := b.dropped.Add(1)
		if b.logger != nil {
			b.logger.Warn("event bus full, dropping event", "type", event.Type().String(), "dropped", n)
		}
	}
}

// Send queues an event, waiting for room. Use it for events that must
// not be lost, such as the end of a run.
func (b *Bus) Send(event Event) {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		return
	}
	b.ch <- event
}

// Dropped reports how many events Publish discarded.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops accepting events, delivers everything already queued and
// waits for the dispatch goroutine to exit. It is safe to call twice.
func (b *Bus) Close() {
	b.sendMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.sendMu.Unlock()
	<-b.done
}
