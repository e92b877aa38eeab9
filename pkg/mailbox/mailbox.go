// Package mailbox implements a generic typed channel whose Send and
// Receive honor a context deadline and fail with a tagged
// failure.NetworkError instead of blocking forever. Receive on a
// closed mailbox also returns a NetworkError; Send on a closed mailbox
// panics, as on a native channel. No other package in this module
// imports it: the schedulers use plain wake/stop channels and pkg/events
// delivers to plain Go channels.
package mailbox

import (
	"context"

	"github.com/wrench-sim/wrench/pkg/failure"
)

// Channel is a generic buffered mailbox. The zero value is not usable;
// construct with New.
type Channel[T any] struct {
	ch chan T
}

// New creates a Channel with the given buffer capacity.
func New[T any](capacity int) *Channel[T] {
	return &Channel[T]{ch: make(chan T, capacity)}
}

// Send enqueues v, blocking until there is room or ctx is done. A
// context deadline surfaces as a NetworkError tagged NetworkTimeoutKind
// and any other cancellation as one tagged NetworkFailureKind, both in
// the send direction. Sending on a closed mailbox panics (see Close).
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	select {
	case c.ch <- v:
		return nil
	case <-ctx.Done():
		kind := failure.NetworkFailureKind
		if ctx.Err() == context.DeadlineExceeded {
			kind = failure.NetworkTimeoutKind
		}
		return &failure.NetworkError{Direction: failure.NetworkSend, Kind: kind}
	}
}

// TrySend enqueues v without blocking, returning a NetworkError with
// NetworkFailureKind if the mailbox is full.
func (c *Channel[T]) TrySend(v T) error {
	select {
	case c.ch <- v:
		return nil
	default:
		return &failure.NetworkError{Direction: failure.NetworkSend, Kind: failure.NetworkFailureKind}
	}
}

// Receive blocks until a value is available, ctx is done, or the
// mailbox is closed. On ctx expiry it returns a NetworkError tagged
// NetworkTimeoutKind in the recv direction; on closure it returns the
// zero value and a NetworkError tagged NetworkFailureKind in the recv
// direction.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-c.ch:
		if !ok {
			return zero, &failure.NetworkError{Direction: failure.NetworkRecv, Kind: failure.NetworkFailureKind}
		}
		return v, nil
	case <-ctx.Done():
		return zero, &failure.NetworkError{Direction: failure.NetworkRecv, Kind: failure.NetworkTimeoutKind}
	}
}

// Chan exposes the underlying channel for use in a select alongside
// other cases (e.g. a stopCh), when the full Receive semantics aren't
// needed.
func (c *Channel[T]) Chan() <-chan T {
	return c.ch
}

// Close closes the mailbox. Further Sends will panic, matching native
// channel semantics; callers coordinate shutdown via a stopCh instead
// of relying on Close to unblock receivers.
func (c *Channel[T]) Close() {
	close(c.ch)
}

// Len reports the number of values currently buffered.
func (c *Channel[T]) Len() int {
	return len(c.ch)
}
