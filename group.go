package flock

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrorMode controls how a Group aggregates the errors returned by the
// functions it runs.
type ErrorMode int

const (
	// CollectAll runs every function to completion and returns every
	// error as an *AggregateError. The default.
	CollectAll ErrorMode = iota
	// FailFast cancels the Group's context on the first error and
	// returns only that error from Wait.
	FailFast
	// IgnoreErrors discards every error; Wait always returns nil.
	IgnoreErrors
)

// GroupOption configures a Group.
type GroupOption func(*groupConfig)

type groupConfig struct {
	errorMode ErrorMode
}

// WithGroupErrorMode sets a Group's error aggregation mode.
func WithGroupErrorMode(mode ErrorMode) GroupOption {
	return func(c *groupConfig) { c.errorMode = mode }
}

// Group is a convenience layer over Pool and Future for running a batch of
// context-aware functions and collecting their outcome according to an
// ErrorMode. It does not participate in the queue or wake-coordination
// semantics directly — every function it runs is itself one Submit call,
// so a Group is just structured bookkeeping around a batch of Futures.
type Group struct {
	pool   *Pool
	config groupConfig

	ctx    context.Context
	cancel context.CancelFunc

	// FailFast delegates its "stop at first error" bookkeeping to
	// errgroup.Group, which already implements exactly that primitive,
	// rather than hand-rolling a sync.Once-guarded atomic.Value latch.
	eg *errgroup.Group

	mu        sync.Mutex
	errs      []error
	completed int
	failed    int

	futures []*Future[error]
}

// NewGroup constructs a Group that submits work to pool. The returned
// Group's context is canceled (for FailFast mode's in-flight functions
// that observe ctx.Done) once Wait returns.
func NewGroup(pool *Pool, opts ...GroupOption) *Group {
	return NewGroupWithContext(context.Background(), pool, opts...)
}

// NewGroupWithContext is NewGroup with an explicit parent context.
func NewGroupWithContext(ctx context.Context, pool *Pool, opts ...GroupOption) *Group {
	cfg := groupConfig{errorMode: CollectAll}
	for _, opt := range opts {
		opt(&cfg)
	}
	groupCtx, cancel := context.WithCancel(ctx)

	g := &Group{pool: pool, config: cfg, ctx: groupCtx, cancel: cancel}
	if cfg.errorMode == FailFast {
		eg, egCtx := errgroup.WithContext(groupCtx)
		g.eg = eg
		g.ctx = egCtx
	}
	return g
}

// Go submits fn to the Group's pool. fn receives the Group's context,
// which is canceled after the first error under FailFast, or after Wait
// returns under every mode. Panics inside fn surface as a *PanicError,
// handled identically to a returned error.
func (g *Group) Go(fn func(ctx context.Context) error) {
	if g.config.errorMode == FailFast {
		g.eg.Go(func() error {
			future, err := SubmitErr(g.pool, func() (error, error) {
				return fn(g.ctx), nil
			})
			if err != nil {
				g.record(err)
				return err
			}
			fnErr := waitTaskResult(future)
			g.record(fnErr)
			return fnErr
		})
		return
	}

	future, err := SubmitErr(g.pool, func() (error, error) {
		return fn(g.ctx), nil
	})
	if err != nil {
		g.record(err)
		return
	}
	g.mu.Lock()
	g.futures = append(g.futures, future)
	g.mu.Unlock()
}

// waitTaskResult waits for a Group task's Future and returns its effective
// error: fn's own returned error, or — when fn panicked — the transport
// error Future.Wait carries in its second return value (a *PanicError,
// never observable through the first/value return since fulfill zeroes
// the value on panic). Reading only the first return value would silently
// treat every panicking fn as a success.
func waitTaskResult(f *Future[error]) error {
	value, transportErr := f.Wait(context.Background())
	if transportErr != nil {
		return transportErr
	}
	return value
}

func (g *Group) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed++
	if err != nil {
		g.failed++
		if g.config.errorMode == CollectAll {
			g.errs = append(g.errs, err)
		}
	}
}

// Wait blocks until every function submitted via Go has completed (or, in
// FailFast mode, until the first error arrives and the rest have observed
// cancellation), then returns the aggregated outcome per the Group's
// ErrorMode. It cancels the Group's context before returning.
func (g *Group) Wait() error {
	defer g.cancel()

	if g.config.errorMode == FailFast {
		return g.eg.Wait()
	}

	for _, f := range g.futures {
		g.record(waitTaskResult(f))
	}

	switch g.config.errorMode {
	case IgnoreErrors:
		return nil
	case CollectAll:
		g.mu.Lock()
		errs := make([]error, len(g.errs))
		copy(errs, g.errs)
		g.mu.Unlock()
		if len(errs) == 0 {
			return nil
		}
		return &AggregateError{Errors: errs}
	default:
		return nil
	}
}

// GroupStats is a snapshot of a Group's bookkeeping, valid once Wait has
// returned.
type GroupStats struct {
	Completed int
	Failed    int
}

// Stats returns the Group's current bookkeeping. Safe to call before Wait
// returns, though counts are only final afterward.
func (g *Group) Stats() GroupStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GroupStats{Completed: g.completed, Failed: g.failed}
}
