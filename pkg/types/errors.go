// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrEmpty indicates a non-blocking pop found no element
	ErrEmpty = errors.New("deque is empty")

	// ErrClosed indicates the deque has been closed and drained
	ErrClosed = errors.New("deque is closed")

	// ErrFull indicates a bounded deque is at capacity
	ErrFull = errors.New("deque is full")

	// ErrPoolClosed indicates the worker pool has begun shutdown
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrWorkerStopped indicates the persistent worker has been stopped
	ErrWorkerStopped = errors.New("persistent worker is stopped")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task cannot be nil")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// TaskError represents a failure raised by a user-supplied task.
// It is caught at the scheduler boundary and reported through the
// configured ErrorHandler; it never propagates to other tasks or to
// shutdown logic.
type TaskError struct {
	// TaskID identifies the failing task
	TaskID string

	// WorkerID identifies the worker that ran the task (-1 if unknown)
	WorkerID int

	// Cause is the underlying error
	Cause error

	// Stack holds the stack trace when the failure was a panic
	Stack string
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewTaskError creates a new task error
func NewTaskError(taskID string, workerID int, cause error) *TaskError {
	return &TaskError{
		TaskID:   taskID,
		WorkerID: workerID,
		Cause:    cause,
	}
}

// WithStack attaches a stack trace to the error
func (e *TaskError) WithStack(stack string) *TaskError {
	e.Stack = stack
	return e
}
