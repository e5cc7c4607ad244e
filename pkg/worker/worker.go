// Package worker runs blocking jobs one at a time, shielded from
// cancellation of the context that owns the worker.
//
// Packagers use it for archive writes: when the user interrupts a
// download, the job that is currently writing a file finishes normally and
// the worker then shuts down, so no half-written archive is left behind.
//
// # Shutdown
//
// Shutdown is two-phase. Shutdown (or cancellation of the parent context)
// first closes the intake so new submissions fail with ErrClosed, then the
// watchdog goroutine enqueues a sentinel; the job loop exits once it reaches
// the sentinel. Wait blocks until that happens.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Submit once shutdown has begun.
var ErrClosed = errors.New("worker: shut down")

// Job is a unit of work. The context it receives is never cancelled by the
// worker's parent context.
type Job func(ctx context.Context) error

type request struct {
	job  Job
	done chan error
}

type Worker struct {
	logger *slog.Logger

	queue    chan *request
	stopping chan struct{}
	stopOnce sync.Once
	exited   chan struct{}

	startOnce sync.Once
	jobCtx    context.Context
}

func New(logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		logger:   logger,
		queue:    make(chan *request),
		stopping: make(chan struct{}),
		exited:   make(chan struct{}),
	}
}

// Start launches the job loop and the watchdog. The watchdog begins
// shutdown as soon as ctx is done. Calling Start more than once is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.jobCtx = context.WithoutCancel(ctx)
		go w.loop()
		go w.watch(ctx)
	})
}

// Submit runs job on the started worker and blocks until it has finished,
// returning the job's error. A panicking job is reported as an error and
// does not stop the worker.
func (w *Worker) Submit(job Job) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}

	req := &request{job: job, done: make(chan error, 1)}
	select {
	case <-w.stopping:
		return ErrClosed
	default:
	}

	select {
	case w.queue <- req:
	case <-w.stopping:
		return ErrClosed
	}
	return <-req.done
}

// Shutdown stops accepting jobs. The job in progress, if any, completes.
func (w *Worker) Shutdown() {
	w.stopOnce.Do(func() { close(w.stopping) })
}

// Wait blocks until the job loop has exited. On a worker that was never
// started it returns immediately and the worker can no longer be started.
func (w *Worker) Wait() {
	w.startOnce.Do(func() {
		w.Shutdown()
		close(w.exited)
	})
	<-w.exited
}

// Close is Shutdown followed by Wait.
func (w *Worker) Close() error {
	w.Shutdown()
	w.Wait()
	return nil
}

func (w *Worker) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		w.logger.Debug("owner context done, draining worker")
	case <-w.stopping:
	}
	w.Shutdown()
	// The sentinel is received only after the current job returns.
	w.queue <- nil
}

func (w *Worker) loop() {
	defer close(w.exited)
	for req := range w.queue {
		if req == nil {
			return
		}
		req.done <- w.run(req.job)
	}
}

func (w *Worker) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: job panicked: %v", r)
		}
		if err != nil {
			w.logger.Error("worker job failed", "error", err)
		}
	}()
	return job(w.jobCtx)
}
