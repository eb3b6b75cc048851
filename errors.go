package flock

import "fmt"

// PoolError represents an error that occurred within the worker pool or
// its collaborating components. It wraps a sentinel plus an optional
// cause, and supports errors.Is/errors.As via Unwrap.
type PoolError struct {
	msg string
	err error
}

// Error returns a formatted error message, including the wrapped cause if
// one is present.
func (e *PoolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("flock: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("flock: %s", e.msg)
}

// Unwrap returns the underlying cause, if any.
func (e *PoolError) Unwrap() error {
	return e.err
}

// Sentinel errors returned by the pool and its collaborators. Compare with
// errors.Is, not direct equality, since some of these are also returned
// wrapped with additional context.
var (
	// ErrStopped is returned by Submit when called after RequestStop (or
	// after Close has begun). The task was never enqueued.
	ErrStopped = &PoolError{msg: "pool is stopped"}

	// ErrSlotExhausted is returned when a participating goroutine cannot
	// acquire a hazard-pointer record because the process-wide hazard
	// domain's slot table is full. Fatal to that goroutine's
	// participation; the pool itself continues operating with its
	// remaining workers.
	ErrSlotExhausted = &PoolError{msg: "hazard slot table exhausted"}

	// ErrInvalidConfig is returned by NewPool when the supplied Config (or
	// the result of applying Options to it) fails validation.
	ErrInvalidConfig = &PoolError{msg: "invalid configuration"}

	// ErrNilTask is returned when Submit is called with a nil function.
	ErrNilTask = &PoolError{msg: "task is nil"}
)

func wrapInvalidConfig(reason string) error {
	return &PoolError{msg: reason, err: ErrInvalidConfig}
}

// PanicError wraps a value recovered from a task's panic. It is delivered
// through the task's Future so a caller waiting on the result learns about
// the panic rather than hanging forever; the pool's own worker loop also
// observes the same panic (after the future has been fulfilled) for
// logging and the PanicHandler hook.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("flock: task panicked: %v", p.Value)
}

// AggregateError combines the errors collected by a Group running in
// CollectAll mode.
type AggregateError struct {
	Errors []error
}

func (a *AggregateError) Error() string {
	if len(a.Errors) == 0 {
		return "flock: no errors"
	}
	s := fmt.Sprintf("flock: %d error(s) occurred:", len(a.Errors))
	for i, err := range a.Errors {
		s += fmt.Sprintf("\n  [%d] %v", i+1, err)
	}
	return s
}

func (a *AggregateError) Unwrap() []error {
	return a.Errors
}
