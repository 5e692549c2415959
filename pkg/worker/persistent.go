package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajrodado/workcrew/pkg/types"
)

// DefaultPersistentInterval is the default pause between polling cycles
const DefaultPersistentInterval = 10 * time.Millisecond

// PersistentWorkerConfig defines configuration for PersistentWorker
type PersistentWorkerConfig struct {
	// Interval is the pause between polling cycles
	Interval time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler receives contained task failures (optional)
	ErrorHandler types.ErrorHandler

	// Logger is the structured logging sink (optional, defaults to slog.Default)
	Logger *slog.Logger
}

// DefaultPersistentWorkerConfig returns default configuration
func DefaultPersistentWorkerConfig() *PersistentWorkerConfig {
	return &PersistentWorkerConfig{
		Interval: DefaultPersistentInterval,
		Clock:    types.NewRealClock(),
	}
}

// PersistentWorker runs a named, replaceable set of recurring tasks on one
// dedicated goroutine. Each polling cycle snapshots the current task set
// under lock, runs every snapshot task sequentially with failure
// containment, then sleeps for the configured interval.
//
// Tasks are expected to be fast and non-blocking: they all run serially
// within one cycle, so a slow task delays every other task in that cycle.
type PersistentWorker struct {
	config *PersistentWorkerConfig

	mu    sync.Mutex
	tasks map[string]types.Task

	stopped  int32
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPersistentWorker creates the worker and immediately spawns its loop
// goroutine.
func NewPersistentWorker(config *PersistentWorkerConfig) (*PersistentWorker, error) {
	if config == nil {
		config = DefaultPersistentWorkerConfig()
	}
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", config.Interval)
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	w := &PersistentWorker{
		config: config,
		tasks:  make(map[string]types.Task),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go w.loop()
	return w, nil
}

// AddTask inserts or replaces the task registered under name, effective
// no later than the start of the next cycle. Returns ErrWorkerStopped
// after Stop and ErrNilTask for a nil task.
func (w *PersistentWorker) AddTask(name string, task types.Task) error {
	if task == nil {
		return types.ErrNilTask
	}
	if atomic.LoadInt32(&w.stopped) != 0 {
		return types.ErrWorkerStopped
	}

	w.mu.Lock()
	w.tasks[name] = task
	w.mu.Unlock()
	return nil
}

// RemoveTask removes the task registered under name, effective no later
// than the start of the next cycle. No-op for unknown names.
func (w *PersistentWorker) RemoveTask(name string) {
	w.mu.Lock()
	delete(w.tasks, name)
	w.mu.Unlock()
}

// TaskNames returns the currently registered task names, sorted.
func (w *PersistentWorker) TaskNames() []string {
	w.mu.Lock()
	names := make([]string, 0, len(w.tasks))
	for name := range w.tasks {
		names = append(names, name)
	}
	w.mu.Unlock()

	sort.Strings(names)
	return names
}

// Stop signals the loop to exit after its current cycle and joins the
// goroutine. The in-cycle sleep is woken early, so stop latency is
// bounded by the current cycle's task runtime. Idempotent.
func (w *PersistentWorker) Stop() {
	atomic.StoreInt32(&w.stopped, 1)
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
}

// IsStopped reports whether Stop has been called
func (w *PersistentWorker) IsStopped() bool {
	return atomic.LoadInt32(&w.stopped) != 0
}

func (w *PersistentWorker) loop() {
	defer close(w.done)

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		// Snapshot under lock; task execution happens outside the lock
		// so a slow task never blocks AddTask/RemoveTask callers.
		w.mu.Lock()
		snapshot := make(map[string]types.Task, len(w.tasks))
		for name, task := range w.tasks {
			snapshot[name] = task
		}
		w.mu.Unlock()

		for name, task := range snapshot {
			if err := executeTask(context.Background(), task, -1); err != nil {
				w.reportError(name, err)
			}
		}

		timer := w.config.Clock.NewTimer(w.config.Interval)
		select {
		case <-timer.C():
		case <-w.stop:
			timer.Stop()
			return
		}
	}
}

// reportError pushes a contained task failure out the side channels.
// One task's failure never prevents the rest of the cycle.
func (w *PersistentWorker) reportError(name string, err error) {
	w.config.Logger.Error("recurring task failed",
		slog.String("task", name),
		slog.Any("error", err))

	if handler := w.config.ErrorHandler; handler != nil {
		if handlerErr := handler(err); handlerErr != nil {
			w.config.Logger.Error("error handler failed",
				slog.String("task", name),
				slog.Any("error", handlerErr))
		}
	}
}
