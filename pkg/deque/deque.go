// Package deque provides a concurrency-safe double-ended queue with
// blocking pop semantics and a closeable-stream terminal state.
package deque

import (
	"sync"

	"github.com/ajrodado/workcrew/pkg/types"
)

// Deque is a mutex plus condition-variable protected double-ended queue.
// Elements are stored in a growable ring buffer; both ends support push
// and pop. A closed deque rejects pushes but keeps draining remaining
// elements before blocking pops report closure.
//
// The zero value is not usable; construct with New or NewWithCapacity.
type Deque[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	buf  []T
	head int // index of the front element
	n    int // number of stored elements

	capacity int // maximum elements, 0 means unbounded
	closed   bool

	sink EventSink
}

const minBufSize = 8

// New creates an empty unbounded deque.
func New[T any]() *Deque[T] {
	return NewWithCapacity[T](0)
}

// NewWithCapacity creates an empty deque holding at most capacity
// elements. A capacity <= 0 means unbounded. Pushing onto a full bounded
// deque fails fast with ErrFull; producers are never blocked.
func NewWithCapacity[T any](capacity int) *Deque[T] {
	if capacity < 0 {
		capacity = 0
	}
	d := &Deque[T]{
		buf:      make([]T, minBufSize),
		capacity: capacity,
	}
	d.notEmpty = sync.NewCond(&d.mu)
	return d
}

// SetSink attaches an event sink invoked synchronously on push, pop and
// close. Set it before the deque is shared between goroutines; the sink
// must not call back into the deque.
func (d *Deque[T]) SetSink(sink EventSink) {
	d.mu.Lock()
	d.sink = sink
	d.mu.Unlock()
}

// PushBack appends v at the back. Returns ErrClosed after Close, ErrFull
// when a bounded deque is at capacity. Wakes at most one blocked consumer.
func (d *Deque[T]) PushBack(v T) error {
	return d.push(v, Back)
}

// PushFront inserts v at the front. Same failure modes as PushBack.
func (d *Deque[T]) PushFront(v T) error {
	return d.push(v, Front)
}

func (d *Deque[T]) push(v T, end End) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return types.ErrClosed
	}
	if d.capacity > 0 && d.n == d.capacity {
		d.mu.Unlock()
		return types.ErrFull
	}
	if d.n == len(d.buf) {
		d.grow()
	}
	if end == Front {
		d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
		d.buf[d.head] = v
	} else {
		d.buf[(d.head+d.n)%len(d.buf)] = v
	}
	d.n++
	sink := d.sink
	d.notEmpty.Signal()
	d.mu.Unlock()

	if sink != nil {
		sink.OnPush(end)
	}
	return nil
}

// PopBack removes and returns the back element without blocking. Returns
// ErrEmpty when no element is present, or ErrClosed when the deque is
// closed and drained. It never waits on the condition variable.
func (d *Deque[T]) PopBack() (T, error) {
	return d.pop(Back, false)
}

// PopFront removes and returns the front element without blocking. Same
// failure modes as PopBack.
func (d *Deque[T]) PopFront() (T, error) {
	return d.pop(Front, false)
}

// WaitPopBack removes and returns the back element, suspending the caller
// until an element is available or the deque is closed. Returns ErrClosed
// only once the deque is closed and drained.
func (d *Deque[T]) WaitPopBack() (T, error) {
	return d.pop(Back, true)
}

// WaitPopFront is the blocking counterpart of PopFront.
func (d *Deque[T]) WaitPopFront() (T, error) {
	return d.pop(Front, true)
}

// TryPopBack removes and returns the back element, reporting false instead
// of an error when nothing can be popped.
func (d *Deque[T]) TryPopBack() (T, bool) {
	v, err := d.pop(Back, false)
	return v, err == nil
}

// TryPopFront is the front-end counterpart of TryPopBack.
func (d *Deque[T]) TryPopFront() (T, bool) {
	v, err := d.pop(Front, false)
	return v, err == nil
}

func (d *Deque[T]) pop(end End, wait bool) (T, error) {
	var zero T

	d.mu.Lock()
	if wait {
		// Predicate wait guards against spurious and lost wakeups.
		for d.n == 0 && !d.closed {
			d.notEmpty.Wait()
		}
	}
	if d.n == 0 {
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return zero, types.ErrClosed
		}
		return zero, types.ErrEmpty
	}

	var v T
	if end == Front {
		v = d.buf[d.head]
		d.buf[d.head] = zero
		d.head = (d.head + 1) % len(d.buf)
	} else {
		i := (d.head + d.n - 1) % len(d.buf)
		v = d.buf[i]
		d.buf[i] = zero
	}
	d.n--
	sink := d.sink
	d.mu.Unlock()

	if sink != nil {
		sink.OnPop(end)
	}
	return v, nil
}

// Close transitions the deque to its terminal state: pushes fail from now
// on, remaining elements may still be drained, and all blocked waiters are
// woken. Idempotent.
func (d *Deque[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	sink := d.sink
	d.notEmpty.Broadcast()
	d.mu.Unlock()

	if sink != nil {
		sink.OnClose()
	}
}

// Clear removes and discards all elements, returning how many were
// dropped. Permitted on a closed deque; it only accelerates draining.
func (d *Deque[T]) Clear() int {
	d.mu.Lock()
	removed := d.n
	d.buf = make([]T, minBufSize)
	d.head = 0
	d.n = 0
	sink := d.sink
	d.mu.Unlock()

	if sink != nil && removed > 0 {
		sink.OnClear(removed)
	}
	return removed
}

// Size returns the number of stored elements. The snapshot is consistent
// under the lock but may be stale immediately after return.
func (d *Deque[T]) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

// IsEmpty reports whether the deque currently holds no elements.
func (d *Deque[T]) IsEmpty() bool {
	return d.Size() == 0
}

// IsClosed reports whether Close has been called.
func (d *Deque[T]) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Cap returns the configured capacity, 0 for unbounded.
func (d *Deque[T]) Cap() int {
	return d.capacity
}

// grow doubles the ring buffer, relinearizing elements from head.
// Caller must hold d.mu.
func (d *Deque[T]) grow() {
	buf := make([]T, len(d.buf)*2)
	for i := 0; i < d.n; i++ {
		buf[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = buf
	d.head = 0
}
