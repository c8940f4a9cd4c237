package match

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
)

// ErrRingTimeout is returned when Shutdown gives up before the consumer
// drains the buffer.
var ErrRingTimeout = errors.New("match: ring buffer shutdown timeout")

// EventHandler consumes entries delivered by a RingBuffer.
type EventHandler[T any] interface {
	OnEvent(event T)
}

// RingBuffer is a multi-producer single-consumer ring. Producers claim a
// slot with a CAS on the producer sequence, write, then mark the slot
// published; the consumer goroutine spins forward over published slots.
type RingBuffer[T any] struct {
	// padded to keep the two sequences on separate cache lines
	_                [56]byte
	producerSequence atomic.Int64
	_                [56]byte
	consumerSequence atomic.Int64
	_                [56]byte

	buffer     []T
	bufferMask int64
	capacity   int64

	// published[i] holds the sequence whose write to buffer[i] is visible
	published []int64

	handler EventHandler[T]

	isShutdown atomic.Bool
}

// NewRingBuffer creates a ring of the given capacity, which must be a
// power of two.
func NewRingBuffer[T any](capacity int64, handler EventHandler[T]) (*RingBuffer[T], error) {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		return nil, errors.New("match: ring capacity must be a power of 2")
	}

	rb := &RingBuffer[T]{
		buffer:     make([]T, capacity),
		published:  make([]int64, capacity),
		capacity:   capacity,
		bufferMask: capacity - 1,
		handler:    handler,
	}

	rb.producerSequence.Store(-1)
	rb.consumerSequence.Store(-1)

	for i := range rb.published {
		rb.published[i] = -1
	}

	return rb, nil
}

// Publish claims the next slot and writes the event. It spins while the
// ring is full and is safe to call from many goroutines.
func (rb *RingBuffer[T]) Publish(event T) error {
	if rb.isShutdown.Load() {
		return ErrShutdown
	}

	var nextSeq int64
	for {
		currentProducerSeq := rb.producerSequence.Load()
		nextSeq = currentProducerSeq + 1

		// producer may not lap the consumer
		wrapPoint := nextSeq - rb.capacity
		if wrapPoint > rb.consumerSequence.Load() {
			runtime.Gosched()
			continue
		}

		if rb.producerSequence.CompareAndSwap(currentProducerSeq, nextSeq) {
			break
		}
		runtime.Gosched()
	}

	index := nextSeq & rb.bufferMask
	rb.buffer[index] = event

	// make the slot visible to the consumer
	atomic.StoreInt64(&rb.published[index], nextSeq)
	return nil
}

// Start runs the consumer goroutine until Shutdown or ctx cancellation.
func (rb *RingBuffer[T]) Start(ctx context.Context) {
	go rb.consumerLoop(ctx)
}

// Shutdown blocks new publishes and waits for the consumer to drain every
// claimed slot, or until ctx expires.
func (rb *RingBuffer[T]) Shutdown(ctx context.Context) error {
	rb.isShutdown.Store(true)

	for {
		select {
		case <-ctx.Done():
			return ErrRingTimeout
		default:
			if rb.ConsumerSequence() >= rb.ProducerSequence() {
				return nil
			}
			runtime.Gosched()
		}
	}
}

func (rb *RingBuffer[T]) consumerLoop(ctx context.Context) {
	nextConsumerSeq := rb.consumerSequence.Load() + 1

	for {
		availableSeq := rb.producerSequence.Load()

		if rb.isShutdown.Load() || ctx.Err() != nil {
			rb.isShutdown.Store(true)
			rb.processRemainingEvents(nextConsumerSeq)
			return
		}

		processed := false
		for nextConsumerSeq <= availableSeq {
			index := nextConsumerSeq & rb.bufferMask

			// the slot is claimed but may not be written yet
			for atomic.LoadInt64(&rb.published[index]) != nextConsumerSeq {
				runtime.Gosched()
			}

			rb.handler.OnEvent(rb.buffer[index])

			rb.consumerSequence.Store(nextConsumerSeq)
			nextConsumerSeq++
			processed = true
		}

		if !processed {
			runtime.Gosched()
		}
	}
}

func (rb *RingBuffer[T]) processRemainingEvents(nextConsumerSeq int64) {
	availableSeq := rb.producerSequence.Load()

	for nextConsumerSeq <= availableSeq {
		index := nextConsumerSeq & rb.bufferMask

		for atomic.LoadInt64(&rb.published[index]) != nextConsumerSeq {
			runtime.Gosched()
		}

		rb.handler.OnEvent(rb.buffer[index])

		rb.consumerSequence.Store(nextConsumerSeq)
		nextConsumerSeq++
	}
}

// ConsumerSequence reports the last sequence the consumer has handled.
func (rb *RingBuffer[T]) ConsumerSequence() int64 {
	return rb.consumerSequence.Load()
}

// ProducerSequence reports the highest sequence claimed by a producer.
func (rb *RingBuffer[T]) ProducerSequence() int64 {
	return rb.producerSequence.Load()
}

// PendingEvents reports how many claimed slots await the consumer.
func (rb *RingBuffer[T]) PendingEvents() int64 {
	return rb.producerSequence.Load() - rb.consumerSequence.Load()
}
