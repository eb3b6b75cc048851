package flock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupCollectAllAggregatesErrors(t *testing.T) {
	p, err := NewPool(WithNumWorkers(4))
	require.NoError(t, err)
	defer p.Close()

	g := NewGroup(p, WithGroupErrorMode(CollectAll))

	wantErrs := []string{"error 1", "error 2", "error 3"}
	for _, msg := range wantErrs {
		msg := msg
		g.Go(func(ctx context.Context) error { return errors.New(msg) })
	}
	g.Go(func(ctx context.Context) error { return nil })

	err = g.Wait()
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 3)

	stats := g.Stats()
	require.Equal(t, 4, stats.Completed)
	require.Equal(t, 3, stats.Failed)
}

func TestGroupIgnoreErrorsAlwaysReturnsNil(t *testing.T) {
	p, err := NewPool(WithNumWorkers(2))
	require.NoError(t, err)
	defer p.Close()

	g := NewGroup(p, WithGroupErrorMode(IgnoreErrors))
	g.Go(func(ctx context.Context) error { return errors.New("ignored") })
	g.Go(func(ctx context.Context) error { return nil })

	require.NoError(t, g.Wait())
}

func TestGroupFailFastCancelsRemainingWork(t *testing.T) {
	p, err := NewPool(WithNumWorkers(4))
	require.NoError(t, err)
	defer p.Close()

	g := NewGroupWithContext(context.Background(), p, WithGroupErrorMode(FailFast))

	wantErr := errors.New("fail fast")
	g.Go(func(ctx context.Context) error { return wantErr })

	for i := 0; i < 20; i++ {
		g.Go(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}

	err = g.Wait()
	require.ErrorIs(t, err, wantErr)
}

// TestGroupCollectAllRecordsPanicAsError guards against Go's Wait discarding
// Future.Wait's transport-error return: a fn that panics must be recorded as
// a failure, not silently treated as success just because its own error
// return is nil.
func TestGroupCollectAllRecordsPanicAsError(t *testing.T) {
	p, err := NewPool(WithNumWorkers(4))
	require.NoError(t, err)
	defer p.Close()

	g := NewGroup(p, WithGroupErrorMode(CollectAll))

	g.Go(func(ctx context.Context) error { panic("boom") })
	g.Go(func(ctx context.Context) error { return nil })

	err = g.Wait()
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 1)

	var panicErr *PanicError
	require.ErrorAs(t, agg.Errors[0], &panicErr)
	require.Equal(t, "boom", panicErr.Value)

	stats := g.Stats()
	require.Equal(t, 2, stats.Completed)
	require.Equal(t, 1, stats.Failed)
}

// TestGroupFailFastCancelsOnPanic mirrors
// TestGroupFailFastCancelsRemainingWork but with the triggering function
// panicking instead of returning an error, confirming FailFast's cancellation
// is driven off the panic too.
func TestGroupFailFastCancelsOnPanic(t *testing.T) {
	p, err := NewPool(WithNumWorkers(4))
	require.NoError(t, err)
	defer p.Close()

	g := NewGroupWithContext(context.Background(), p, WithGroupErrorMode(FailFast))

	g.Go(func(ctx context.Context) error { panic("fail fast boom") })

	for i := 0; i < 20; i++ {
		g.Go(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}

	err = g.Wait()
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	require.Equal(t, "fail fast boom", panicErr.Value)
}

func TestGroupRealWorldBatch(t *testing.T) {
	p, err := NewPool(WithNumWorkers(4))
	require.NoError(t, err)
	defer p.Close()

	g := NewGroup(p, WithGroupErrorMode(CollectAll))

	items := []int{1, 2, 3, 4, 5}
	for _, item := range items {
		item := item
		g.Go(func(ctx context.Context) error {
			if item == 3 {
				return errors.New("item 3 failed")
			}
			return nil
		})
	}

	err = g.Wait()
	require.Error(t, err)

	stats := g.Stats()
	require.Equal(t, 5, stats.Completed)
	require.Equal(t, 1, stats.Failed)
}
