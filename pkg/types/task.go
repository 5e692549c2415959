// Package types defines core interfaces shared by the deque and worker packages
package types

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Task defines a unit of work scheduled for execution by a pool or
// persistent worker
type Task interface {
	// Execute executes the task
	Execute(ctx context.Context) error

	// ID returns the task ID (for tracking and error reporting)
	ID() string
}

// ErrorHandler defines the side channel through which contained task
// failures are reported. Returning a non-nil error only affects logging;
// it never stops the scheduler.
type ErrorHandler func(error) error

// TaskFunc adapts a bare function to the Task interface. All TaskFunc
// values share one ID; use NewBasicTask when failures must be traceable
// to a specific task.
type TaskFunc func(ctx context.Context) error

// Execute executes the function
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// ID returns the shared TaskFunc ID
func (f TaskFunc) ID() string {
	return "func"
}

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// BasicTask is the basic implementation of Task interface
type BasicTask struct {
	id string
	fn func(ctx context.Context) error
}

// NewBasicTask creates a new basic task with a generated ID
func NewBasicTask(fn func(ctx context.Context) error) *BasicTask {
	id := atomic.AddInt64(&taskIDCounter, 1)
	return &BasicTask{
		id: fmt.Sprintf("task-%d", id),
		fn: fn,
	}
}

// NewBasicTaskWithID creates a basic task with custom ID
func NewBasicTaskWithID(id string, fn func(ctx context.Context) error) *BasicTask {
	return &BasicTask{
		id: id,
		fn: fn,
	}
}

// Execute executes the task
func (t *BasicTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task %s has no execution function", t.id)
	}
	return t.fn(ctx)
}

// ID returns the task ID
func (t *BasicTask) ID() string {
	return t.id
}
