// Package pending tracks in-flight requests awaiting a correlated response.
package pending

import (
	"errors"
	"sync"
	"time"

	"postit/internal/clock"
)

// ErrTimeout is delivered when no response arrives before the deadline.
var ErrTimeout = errors.New("request timeout")

// ErrClosed is delivered to requests still outstanding when the table closes.
var ErrClosed = errors.New("request table closed")

// Result settles a request.
type Result[T any] struct {
	Value T
	Err   error
}

type entry[T any] struct {
	ch    chan Result[T]
	timer clock.Timer
}

// Table owns outstanding requests keyed by a monotonically increasing id.
// Every registered id is settled exactly once: by Resolve, Reject, its
// timeout or Close. Settling an unknown id is a no-op.
type Table[T any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	timeout time.Duration
	next    uint64
	entries map[uint64]*entry[T]
	closed  bool
}

// New creates a table whose entries expire after timeout.
func New[T any](c clock.Clock, timeout time.Duration) *Table[T] {
	return &Table[T]{
		clock:   c,
		timeout: timeout,
		entries: make(map[uint64]*entry[T]),
	}
}

// Register allocates an id and returns the channel its result is delivered on.
// The channel is buffered, so settling never blocks on the waiter.
func (t *Table[T]) Register() (uint64, <-chan Result[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	id := t.next
	ch := make(chan Result[T], 1)

	if t.closed {
		ch <- Result[T]{Err: ErrClosed}
		return id, ch
	}

	e := &entry[T]{ch: ch}
	t.entries[id] = e
	e.timer = t.clock.AfterFunc(t.timeout, func() {
		t.settle(id, Result[T]{Err: ErrTimeout}, false)
	})
	return id, ch
}

// Resolve delivers v to the request with the given id.
// It reports false when the id is unknown, e.g. after a timeout.
func (t *Table[T]) Resolve(id uint64, v T) bool {
	return t.settle(id, Result[T]{Value: v}, true)
}

// Reject delivers err to the request with the given id.
func (t *Table[T]) Reject(id uint64, err error) bool {
	return t.settle(id, Result[T]{Err: err}, true)
}

// Len returns the number of outstanding requests.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close rejects every outstanding request with err (ErrClosed when nil)
// and makes later registrations fail immediately.
func (t *Table[T]) Close(err error) {
	if err == nil {
		err = ErrClosed
	}

	t.mu.Lock()
	t.closed = true
	entries := t.entries
	t.entries = make(map[uint64]*entry[T])
	t.mu.Unlock()

	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.ch <- Result[T]{Err: err}
	}
}

func (t *Table[T]) settle(id uint64, r Result[T], stopTimer bool) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	if stopTimer && e.timer != nil {
		e.timer.Stop()
	}
	e.ch <- r
	return true
}
