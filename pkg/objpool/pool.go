// Package objpool provides a small generic object pool to reduce GC
// pressure on hot paths.
package objpool

import "sync"

// Pool recycles values of type T through a sync.Pool. An optional reset
// function scrubs returned values so stale state never leaks between
// borrowers.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New creates a pool. newFn allocates fresh values when the pool is
// empty; reset (optional) is applied to every value on Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() interface{} {
				return newFn()
			},
		},
		reset: reset,
	}
}

// Get retrieves a value from the pool or allocates a new one.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns a value to the pool after resetting it.
func (p *Pool[T]) Put(v T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.pool.Put(v)
}
