// Copyright 2026 UF Open Source Club

package mdsync

import (
	"context"
	"sync"
)

// EventQueue is an unbounded FIFO queue of channel events.
//
// Producers (Discord gateway callbacks, the ~sync command) enqueue from any
// goroutine without blocking on the consumer. Exactly one consumer, the sync
// engine, drains it for the lifetime of the process.
//
// A buffered size-1 channel signals availability so the consumer can block
// with context cancellation instead of polling.
type EventQueue struct {
	mu     sync.Mutex
	events []ChannelEvent
	closed bool
	signal chan struct{}
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]ChannelEvent, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends an event. It returns false if the queue is closed.
func (q *EventQueue) Enqueue(evt ChannelEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, evt)

	// Non-blocking: the size-1 buffer coalesces repeated signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Dequeue removes and returns the front event, blocking until an event is
// available, the queue is closed and drained, or ctx is cancelled. The
// second return value is false when no event was produced.
func (q *EventQueue) Dequeue(ctx context.Context) (ChannelEvent, bool) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			evt := q.events[0]
			q.events = q.events[1:]
			q.mu.Unlock()
			return evt, true
		}
		if q.closed {
			q.mu.Unlock()
			return ChannelEvent{}, false
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ChannelEvent{}, false
		case <-q.signal:
		}
	}
}

// Close marks the queue closed. Pending events remain dequeueable; further
// Enqueue calls are rejected.
func (q *EventQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
