package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajrodado/workcrew/internal/testutils"
	"github.com/ajrodado/workcrew/pkg/types"
)

func TestNewPersistentWorker(t *testing.T) {
	tests := []struct {
		name        string
		config      *PersistentWorkerConfig
		expectError bool
	}{
		{
			name:   "nil config should use default",
			config: nil,
		},
		{
			name:   "valid config",
			config: &PersistentWorkerConfig{Interval: 5 * time.Millisecond},
		},
		{
			name:        "zero interval should error",
			config:      &PersistentWorkerConfig{Interval: 0},
			expectError: true,
		},
		{
			name:        "negative interval should error",
			config:      &PersistentWorkerConfig{Interval: -time.Millisecond},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewPersistentWorker(tt.config)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			w.Stop()
		})
	}
}

func TestPersistentWorker_RecurringExecution(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: 10 * time.Millisecond,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	defer w.Stop()

	var counter int64
	require.NoError(t, w.AddTask("t1", types.NewBasicTask(func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})))

	// After roughly five cycles the task must have run at least once.
	time.Sleep(50 * time.Millisecond)
	assert.Positive(t, atomic.LoadInt64(&counter))
}

func TestPersistentWorker_RemoveStopsExecution(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: 10 * time.Millisecond,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	defer w.Stop()

	var counter int64
	require.NoError(t, w.AddTask("t1", types.NewBasicTask(func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})))

	time.Sleep(50 * time.Millisecond)
	require.Positive(t, atomic.LoadInt64(&counter))

	w.RemoveTask("t1")

	// Removal takes effect no later than the next cycle; sample twice,
	// 50ms apart, and require the counter to have stopped moving.
	time.Sleep(50 * time.Millisecond)
	first := atomic.LoadInt64(&counter)
	time.Sleep(50 * time.Millisecond)
	second := atomic.LoadInt64(&counter)
	assert.Equal(t, first, second)
}

func TestPersistentWorker_FailingTaskDoesNotStopOthers(t *testing.T) {
	collector := testutils.NewErrorCollector()
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval:     10 * time.Millisecond,
		ErrorHandler: collector.Handler(),
		Logger:       discardLogger(),
	})
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.AddTask("failing", types.NewBasicTask(func(ctx context.Context) error {
		return errors.New("cycle failure")
	})))
	require.NoError(t, w.AddTask("panicking", types.NewBasicTask(func(ctx context.Context) error {
		panic("cycle panic")
	})))

	var counter int64
	require.NoError(t, w.AddTask("healthy", types.NewBasicTask(func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})))

	// The healthy task keeps running on subsequent cycles despite the two
	// failing ones.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&counter) >= 3
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, collector.Count(), 2)
}

func TestPersistentWorker_ReplaceTask(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	defer w.Stop()

	var old, replacement int64
	require.NoError(t, w.AddTask("t1", types.NewBasicTask(func(ctx context.Context) error {
		atomic.AddInt64(&old, 1)
		return nil
	})))
	require.NoError(t, w.AddTask("t1", types.NewBasicTask(func(ctx context.Context) error {
		atomic.AddInt64(&replacement, 1)
		return nil
	})))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&replacement) >= 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"t1"}, w.TaskNames())
}

func TestPersistentWorker_MockClockCadence(t *testing.T) {
	// Deterministic cadence check: trap the inter-cycle timer so each
	// cycle boundary is observed, then advance the mock clock to trigger
	// the next cycle.
	mock := testutils.NewMockClock(t)
	trap := mock.Trap().NewTimer()
	defer trap.Close()

	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: DefaultPersistentInterval,
		Clock:    testutils.NewClockWrapper(mock),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// First cycle ran with an empty task set; the loop is now parked on
	// timer creation.
	call := trap.MustWait(ctx)

	var counter int64
	require.NoError(t, w.AddTask("t1", types.NewBasicTask(func(taskCtx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})))

	call.Release()
	mock.Advance(DefaultPersistentInterval).MustWait(ctx)

	// Second cycle finished: the task ran exactly once.
	call = trap.MustWait(ctx)
	assert.Equal(t, int64(1), atomic.LoadInt64(&counter))

	w.RemoveTask("t1")
	call.Release()
	mock.Advance(DefaultPersistentInterval).MustWait(ctx)

	// Third cycle finished: removal took effect, no further increment.
	call = trap.MustWait(ctx)
	assert.Equal(t, int64(1), atomic.LoadInt64(&counter))
	call.Release()

	w.Stop()
}

func TestPersistentWorker_AddAfterStop(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: time.Millisecond,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	w.Stop()
	assert.True(t, w.IsStopped())

	err = w.AddTask("late", types.NewBasicTask(func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, err, types.ErrWorkerStopped)
}

func TestPersistentWorker_AddNilTask(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: time.Millisecond,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	defer w.Stop()

	assert.ErrorIs(t, w.AddTask("nil", nil), types.ErrNilTask)
}

func TestPersistentWorker_StopIdempotent(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: time.Millisecond,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	w.Stop()
	w.Stop()
	assert.True(t, w.IsStopped())
}

func TestPersistentWorker_TaskNames(t *testing.T) {
	w, err := NewPersistentWorker(&PersistentWorkerConfig{
		Interval: time.Hour, // effectively frozen after the first cycle
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	defer w.Stop()

	noop := types.NewBasicTask(func(ctx context.Context) error { return nil })
	require.NoError(t, w.AddTask("b", noop))
	require.NoError(t, w.AddTask("a", noop))
	require.NoError(t, w.AddTask("c", noop))
	w.RemoveTask("missing")

	assert.Equal(t, []string{"a", "b", "c"}, w.TaskNames())

	w.RemoveTask("b")
	assert.Equal(t, []string{"a", "c"}, w.TaskNames())
}
