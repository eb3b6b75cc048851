// Package flock provides a lock-free work-dispatch facility for CPU-bound
// tasks: a fixed-size worker pool drains a single lock-free, linked,
// multi-producer multi-consumer FIFO queue, coordinated by a
// mutex/condition-variable wake protocol that never loses a wakeup.
//
// Callers submit nullary work units via Submit and receive a Future that
// eventually carries the work unit's result (or its panic, wrapped as a
// PanicError). Submission and draining are designed for the case where
// many goroutines submit and steal work concurrently and a central mutex
// on the hot enqueue path would be the bottleneck: the queue itself
// (internal/queue) never takes a lock on enqueue or dequeue.
package flock

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flocklib/flock/internal/hazard"
	"github.com/flocklib/flock/internal/queue"
	"github.com/flocklib/flock/internal/retire"
	"github.com/flocklib/flock/internal/wake"
)

// Pool is a fixed-size worker pool draining a shared lock-free MPMC queue.
type Pool struct {
	config Config

	q     *queue.Queue[task]
	coord *wake.Coordinator

	workers []*workerHandle

	closeOnce sync.Once

	// submitMu is the submit-serialization mutex from spec.md §4.4: held
	// across the stop-flag check and the enqueue+notify in Submit, and
	// across setting closed in RequestStop, so a Submit that returns
	// success always enqueued before any subsequent RequestStop can make
	// its workers observe the pool as quiescent. It does not serialize the
	// queue's own lock-free Enqueue/TryDequeue.
	submitMu sync.Mutex
	closed   bool

	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewPool constructs and starts a Pool per the given Options, spawning
// config.NumWorkers worker goroutines immediately. It returns
// ErrInvalidConfig if the resolved configuration is invalid.
func NewPool(opts ...Option) (*Pool, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	p := &Pool{
		config: cfg,
		q:      queue.New[task](hazard.Global(), &retire.Global{}),
		coord:  wake.New(),
	}

	p.workers = make([]*workerHandle, cfg.NumWorkers)
	for i := range p.workers {
		p.workers[i] = newWorkerHandle(i, p)
	}
	for _, w := range p.workers {
		w.start()
	}

	return p, nil
}

// Submit binds fn into a nullary task, enqueues it, and returns a Future
// that resolves once a worker has run it. It returns ErrStopped without
// enqueueing anything if the pool has already been stopped.
func Submit[R any](p *Pool, fn func() R) (*Future[R], error) {
	return SubmitErr(p, func() (R, error) { return fn(), nil })
}

// SubmitErr is Submit for tasks that can themselves fail; the error is
// carried through the Future alongside the result.
func SubmitErr[R any](p *Pool, fn func() (R, error)) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}

	part, err := p.q.Join()
	if err != nil {
		return nil, &PoolError{msg: "submit", err: ErrSlotExhausted}
	}
	defer part.Leave()

	future := newFuture[R]()
	t := newTask(fn, future)

	// The submission handshake from spec §4.4: (i) acquire the
	// submit-serialization mutex, (ii) check the stop flag, (iii) enqueue
	// the task, (iv/v) bump the wake sequence and notify one waiter — all
	// before releasing the mutex. RequestStop acquires the same mutex
	// before setting the stop flag, so the two are linearized: either this
	// enqueue is ordered before RequestStop (and a worker is guaranteed to
	// drain it before exiting) or RequestStop is ordered first (and this
	// call observes p.closed and never enqueues).
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	if p.closed {
		return nil, ErrStopped
	}

	p.q.Enqueue(part, t)
	p.submitted.Add(1)
	p.coord.Notify()

	return future, nil
}

// RequestStop marks the pool as no longer accepting submissions and wakes
// every idle worker so each observes stop. Already-queued tasks still run
// to completion (drain-on-stop): RequestStop does not abort work in
// flight or discard queued tasks. Idempotent.
func (p *Pool) RequestStop() {
	p.submitMu.Lock()
	p.closed = true
	p.submitMu.Unlock()

	logStopRequested(p.config.Logger)
	p.coord.RequestStop()
}

// Close requests stop, joins every worker, and only then drains the
// global retirement overflow. Reversing the join/drain order would free
// queue nodes that a still-running worker's hazard pointer protects.
// Close is idempotent.
//
// If config.ShutdownTimeout is positive and workers have not all joined
// before it elapses, Close gives up waiting and returns early without
// performing the retirement drain — draining anyway would free nodes a
// still-running worker's hazard pointer protects, the exact ordering
// violation the join-before-drain rule exists to prevent.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.RequestStop()

		joined := make(chan struct{})
		go func() {
			for _, w := range p.workers {
				w.join()
			}
			close(joined)
		}()

		if p.config.ShutdownTimeout > 0 {
			select {
			case <-joined:
			case <-time.After(p.config.ShutdownTimeout):
				logFatal(p.config.Logger, -1, errors.New("shutdown timed out waiting for workers to join; retirement drain skipped"))
				return
			}
		} else {
			<-joined
		}

		p.q.Global().DrainAll()
	})
}

// Size returns the pool's fixed worker count.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stats returns a snapshot of pool-wide counters. Submitted and Completed
// are each incremented at a single well-defined point (task accepted;
// task's run returned, panic or not), so InFlight never relies on a
// separately-maintained pending counter.
func (p *Pool) Stats() Stats {
	submitted := p.submitted.Load()
	completed := p.completed.Load()
	return Stats{
		Submitted:  submitted,
		Completed:  completed,
		InFlight:   submitted - completed,
		NumWorkers: len(p.workers),
	}
}
