package match

import (
	"context"
	"sync"
)

// Publisher receives execution events in the order a book emits them.
//
// Publish is called while the book's lock is held, so implementations must
// either consume the events synchronously without blocking on I/O, or copy
// them and hand off. The pointed-to events are pooled and recycled after
// Publish returns; implementations must not retain them.
type Publisher interface {
	Publish(events ...*Event)
}

// DiscardPublisher drops every event. Useful for benchmarks and for books
// whose stream nobody consumes.
type DiscardPublisher struct{}

func (DiscardPublisher) Publish(...*Event) {}

// MemoryPublisher copies events into an in-memory slice. It is the test
// publisher.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(events ...*Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range events {
		p.events = append(p.events, *ev)
	}
}

func (p *MemoryPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *MemoryPublisher) Get(i int) Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[i]
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Reset discards recorded events.
func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = p.events[:0]
}

// MultiPublisher fans each event out to several publishers in order.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(events ...*Event) {
	for _, p := range m {
		p.Publish(events...)
	}
}

// FanoutHandler delivers each ring entry to several handlers in order.
type FanoutHandler[T any] []EventHandler[T]

func (f FanoutHandler[T]) OnEvent(ev T) {
	for _, h := range f {
		h.OnEvent(ev)
	}
}

// RingPublisher decouples slow consumers from the matching hot path. Events
// are copied into a ring buffer at publication and delivered to the handler
// on the ring's own goroutine, so I/O-bound sinks such as Kafka writers or
// websocket hubs never stall a book.
type RingPublisher struct {
	ring *RingBuffer[Event]
}

func NewRingPublisher(size int64, handler EventHandler[Event]) (*RingPublisher, error) {
	ring, err := NewRingBuffer(size, handler)
	if err != nil {
		return nil, err
	}
	return &RingPublisher{ring: ring}, nil
}

func (p *RingPublisher) Publish(events ...*Event) {
	for _, ev := range events {
		if err := p.ring.Publish(*ev); err != nil {
			logger.Error("execution stream publish failed", "error", err, "symbol", ev.Symbol)
		}
	}
}

// Start runs the consumer loop until ctx is done.
func (p *RingPublisher) Start(ctx context.Context) {
	p.ring.Start(ctx)
}

// Shutdown drains buffered events and stops the consumer.
func (p *RingPublisher) Shutdown(ctx context.Context) error {
	return p.ring.Shutdown(ctx)
}
