package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrEmpty,
		ErrClosed,
		ErrFull,
		ErrPoolClosed,
		ErrWorkerStopped,
		ErrNilTask,
		ErrTimeout,
	}

	for i, a := range sentinels {
		assert.NotEmpty(t, a.Error())
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}

	// Sentinels survive %w wrapping.
	wrapped := fmt.Errorf("push failed: %w", ErrClosed)
	assert.ErrorIs(t, wrapped, ErrClosed)
}

func TestTaskError(t *testing.T) {
	cause := errors.New("underlying failure")
	err := NewTaskError("task-7", 3, cause)

	assert.Contains(t, err.Error(), "task-7")
	assert.Contains(t, err.Error(), "underlying failure")
	assert.Equal(t, 3, err.WorkerID)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestTaskError_WithStack(t *testing.T) {
	err := NewTaskError("task-1", -1, errors.New("panic: oops")).WithStack("goroutine 1 [running]:")
	assert.Equal(t, "goroutine 1 [running]:", err.Stack)
}

func TestTaskError_As(t *testing.T) {
	var wrapped error = fmt.Errorf("scheduler: %w", NewTaskError("task-2", 0, ErrTimeout))

	var te *TaskError
	require.ErrorAs(t, wrapped, &te)
	assert.Equal(t, "task-2", te.TaskID)
	assert.ErrorIs(t, wrapped, ErrTimeout)
}
