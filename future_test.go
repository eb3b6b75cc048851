package flock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFutureFulfillThenWait(t *testing.T) {
	f := newFuture[int]()
	f.fulfill(7, nil)

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestFutureFulfillOnlyOnce(t *testing.T) {
	f := newFuture[int]()
	f.fulfill(1, nil)
	f.fulfill(2, errors.New("ignored"))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestFutureWaitRespectsContextCancellation(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewTaskFulfillsFutureOnNormalReturn(t *testing.T) {
	f := newFuture[int]()
	tk := newTask(func() (int, error) { return 99, nil }, f)

	tk.run()

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 99, v)
}

func TestNewTaskFulfillsFutureOnError(t *testing.T) {
	f := newFuture[int]()
	wantErr := errors.New("boom")
	tk := newTask(func() (int, error) { return 0, wantErr }, f)

	tk.run()

	_, err := f.Wait(context.Background())
	require.Equal(t, wantErr, err)
}

func TestNewTaskPanicFulfillsFutureThenRepanics(t *testing.T) {
	f := newFuture[int]()
	tk := newTask(func() (int, error) { panic("kaboom") }, f)

	require.Panics(t, func() { tk.run() })

	_, err := f.Wait(context.Background())
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	require.Equal(t, "kaboom", panicErr.Value)
}
