// Package fresh provides a single-slot mailbox that keeps only the newest value.
//
// A producer on a fixed cadence must never wait for a slow consumer, so Send
// replaces any value the consumer has not picked up yet. Receivers see values
// in the order they were sent, but may skip intermediate ones.
package fresh

import (
	"context"
	"sync"
	"sync/atomic"
)

// Channel is an overwrite-on-full mailbox of capacity one.
// It is meant for one producer and one consumer; Last may be called by anyone.
type Channel[T any] struct {
	slot chan T

	mu   sync.Mutex // serializes Send and guards last
	last T
	has  bool

	dropped atomic.Uint64
}

// New creates an empty Channel.
func New[T any]() *Channel[T] {
	return &Channel[T]{slot: make(chan T, 1)}
}

// Send stores v without blocking. It reports whether an unread value was
// discarded to make room.
func (c *Channel[T]) Send(v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last, c.has = v, true

	dropped := false
	for {
		select {
		case c.slot <- v:
			return dropped
		default:
		}
		select {
		case <-c.slot:
			dropped = true
			c.dropped.Add(1)
		default:
			// consumer took it between the two selects
		}
	}
}

// TryReceive returns the pending value and clears the slot, or false if
// nothing new has been sent since the last receive.
func (c *Channel[T]) TryReceive() (T, bool) {
	select {
	case v := <-c.slot:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Receive blocks until a value is pending or ctx is done.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v := <-c.slot:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Last returns the most recently sent value without consuming it, or false
// if nothing has been sent yet.
func (c *Channel[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.has
}

// Dropped returns how many unread values have been overwritten.
func (c *Channel[T]) Dropped() uint64 {
	return c.dropped.Load()
}
