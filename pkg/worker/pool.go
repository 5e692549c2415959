package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ajrodado/workcrew/pkg/deque"
	"github.com/ajrodado/workcrew/pkg/types"
)

// PoolConfig defines configuration for the fixed-size worker pool
type PoolConfig struct {
	// Workers is the number of worker goroutines
	Workers int

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler receives contained task failures (optional)
	ErrorHandler types.ErrorHandler

	// Logger is the structured logging sink (optional, defaults to slog.Default)
	Logger *slog.Logger

	// Sink observes the shared task queue (optional)
	Sink deque.EventSink
}

// DefaultPoolConfig returns default configuration sized to hardware
// parallelism
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers: runtime.NumCPU(),
		Clock:   types.NewRealClock(),
	}
}

// Pool is a fixed-size worker pool. All workers are spawned at
// construction and consume one shared unbounded deque of tasks; each task
// is dequeued by exactly one worker, in FIFO order from the shared queue.
//
// Shutdown drains to completion: every job accepted before Shutdown runs
// exactly once, and Shutdown returns only after the queue is empty and
// all workers have exited.
type Pool struct {
	config *PoolConfig
	queue  *deque.Deque[types.Task]

	// state: 0 running, 1 shutting down
	state        int32
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	// statistics
	activeWorkers  int32
	totalProcessed int64
	totalFailed    int64
}

// NewPool creates a pool and immediately spawns its workers. The queue is
// the lifecycle: workers exit when it is closed and drained.
func NewPool(config *PoolConfig) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", config.Workers)
	}
	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	queue := deque.New[types.Task]()
	if config.Sink != nil {
		queue.SetSink(config.Sink)
	}

	p := &Pool{
		config: config,
		queue:  queue,
	}

	p.wg.Add(config.Workers)
	for i := 0; i < config.Workers; i++ {
		go p.runWorker(i)
	}

	return p, nil
}

// AddJob enqueues a task for execution by some worker. Returns
// ErrPoolClosed once shutdown has begun and ErrNilTask for a nil task.
func (p *Pool) AddJob(task types.Task) error {
	if task == nil {
		return types.ErrNilTask
	}
	if atomic.LoadInt32(&p.state) != 0 {
		return types.ErrPoolClosed
	}
	if err := p.queue.PushBack(task); err != nil {
		// Shutdown raced with the state check above.
		if errors.Is(err, types.ErrClosed) {
			return types.ErrPoolClosed
		}
		return err
	}
	return nil
}

// Shutdown closes the shared queue and joins all workers, blocking the
// caller until every queued job has run and every worker has exited.
// Idempotent; concurrent calls all block until the joint completion.
func (p *Pool) Shutdown() {
	atomic.StoreInt32(&p.state, 1)
	p.shutdownOnce.Do(func() {
		p.queue.Close()
	})
	p.wg.Wait()
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.config.Workers
}

// IsClosed reports whether shutdown has begun
func (p *Pool) IsClosed() bool {
	return atomic.LoadInt32(&p.state) != 0
}

// QueueSize returns the number of tasks waiting in the shared queue
func (p *Pool) QueueSize() int {
	return p.queue.Size()
}

// PoolStats defines point-in-time pool statistics
type PoolStats struct {
	Workers        int
	ActiveWorkers  int
	QueueSize      int
	TotalProcessed int64
	TotalFailed    int64
}

// Stats returns point-in-time pool statistics
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:        p.config.Workers,
		ActiveWorkers:  int(atomic.LoadInt32(&p.activeWorkers)),
		QueueSize:      p.queue.Size(),
		TotalProcessed: atomic.LoadInt64(&p.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&p.totalFailed),
	}
}

// runWorker is the loop each worker goroutine runs: blocking-pop a task,
// exit on queue closure, otherwise execute with failure containment.
func (p *Pool) runWorker(id int) {
	defer p.wg.Done()

	for {
		task, err := p.queue.WaitPopFront()
		if err != nil {
			// Closed and drained.
			return
		}

		atomic.AddInt32(&p.activeWorkers, 1)
		execErr := executeTask(context.Background(), task, id)
		atomic.AddInt32(&p.activeWorkers, -1)

		if execErr != nil {
			atomic.AddInt64(&p.totalFailed, 1)
			p.reportError(execErr, id)
			continue
		}
		atomic.AddInt64(&p.totalProcessed, 1)
	}
}

// executeTask runs a task with panic recovery. A panicking task is
// converted into a *types.TaskError carrying the stack trace.
func executeTask(ctx context.Context, task types.Task, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = v
			default:
				cause = fmt.Errorf("panic: %v", v)
			}
			err = types.NewTaskError(task.ID(), workerID, cause).WithStack(string(buf[:n]))
		}
	}()

	if err := task.Execute(ctx); err != nil {
		return types.NewTaskError(task.ID(), workerID, err)
	}
	return nil
}

// reportError pushes a contained task failure out the side channels.
// Failures never stop the pool.
func (p *Pool) reportError(err error, workerID int) {
	p.config.Logger.Error("task failed",
		slog.Int("worker", workerID),
		slog.Any("error", err))

	if handler := p.config.ErrorHandler; handler != nil {
		if handlerErr := handler(err); handlerErr != nil {
			p.config.Logger.Error("error handler failed",
				slog.Int("worker", workerID),
				slog.Any("error", handlerErr))
		}
	}
}
