/*
Package worker provides scheduling strategies layered on the blocking
deque: a fixed-size worker pool and a persistent recurring-task worker.

# Overview

Two independent consumers of the deque contract:
  - Pool: N long-lived goroutines pulling one-shot tasks from a shared
    unbounded deque. Each task runs on exactly one worker; dequeue order
    is FIFO from the shared queue.
  - PersistentWorker: one goroutine repeatedly executing a named,
    replaceable set of recurring tasks at a fixed polling cadence, with
    dynamic add/remove while running.

# Failure containment

Task failures (errors and panics) are caught at the scheduler boundary,
wrapped in *types.TaskError and reported through the configured
ErrorHandler and structured logger. They never kill a worker, never reach
other tasks and never affect shutdown. This deliberately favors scheduler
liveness over surfacing individual task failures to callers.

# Shutdown

Pool.Shutdown closes the shared deque and joins all workers. The pool
drains to completion: every job accepted before Shutdown runs exactly
once before Shutdown returns. New jobs are rejected with ErrPoolClosed
once shutdown has begun.

PersistentWorker.Stop signals the loop, wakes the inter-cycle sleep and
joins the goroutine; the current cycle's tasks run to completion first.

# Usage

	pool, err := worker.NewPool(&worker.PoolConfig{Workers: 4})
	if err != nil {
		log.Fatal(err)
	}

	pool.AddJob(types.NewBasicTask(func(ctx context.Context) error {
		// do work
		return nil
	}))

	pool.Shutdown()

Recurring tasks:

	pw, err := worker.NewPersistentWorker(nil)
	if err != nil {
		log.Fatal(err)
	}
	defer pw.Stop()

	pw.AddTask("heartbeat", types.NewBasicTask(func(ctx context.Context) error {
		return sendHeartbeat()
	}))
*/
package worker
