package flock

import (
	"context"
	"sync"
)

// Future is the external "promise" collaborator a submitted task's result
// eventually arrives through. It is obtained synchronously from Submit and
// fulfilled exactly once, internally, by the task's run() when a worker
// executes it.
type Future[R any] struct {
	done  chan struct{}
	once  sync.Once
	value R
	err   error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// fulfill resolves the future with value, v, or error, err. Only the first
// call has any effect; fulfill is called exactly once per task, by run().
func (f *Future[R]) fulfill(v R, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the future is resolved.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first. It returns the task's result and any error returned by the task
// itself (task-internal failures are not observed by the pool's core; they
// are forwarded here verbatim).
func (f *Future[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// task is the move-only-in-spirit capability wrapping a nullary callable:
// its single operation, run, is called exactly once by a worker and
// fulfills the associated Future as its only externally visible side
// effect. task is unexported and only ever held by value inside a queue
// node, so nothing outside this package can invoke run twice or copy it
// after it has been enqueued.
type task struct {
	run func()
}

// newTask binds fn's result into run, so that running the task always
// fulfills future exactly once — even when fn panics, so a caller blocked
// in Future.Wait is never abandoned. The panic itself is re-raised after
// fulfilling the future, so the worker loop's own recovery (logging,
// PanicHandler) still observes it; task-internal
// panics are therefore visible both to the caller (as PanicError, via
// Wait) and to the pool's ambient observability hooks.
func newTask[R any](fn func() (R, error), future *Future[R]) task {
	return task{run: func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				future.fulfill(zero, &PanicError{Value: r})
				panic(r)
			}
		}()
		v, err := fn()
		future.fulfill(v, err)
	}}
}
