package routine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoutineRunsOnTicker(t *testing.T) {
	var count atomic.Int32
	routine := New("ticker", func(ctx context.Context) error {
		count.Add(1)
		return nil
	}, func(error) {}).WithTicker(5 * time.Millisecond)

	routine.Start(context.Background())
	require.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)

	routine.Close()
	<-routine.Done()
}

func TestRoutineSignalTriggersRun(t *testing.T) {
	signal := make(chan struct{}, 1)
	var count atomic.Int32
	routine := New("signalled", func(ctx context.Context) error {
		count.Add(1)
		return nil
	}, func(error) {}).WithSignal(signal)

	routine.Start(context.Background())
	require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, time.Millisecond)

	signal <- struct{}{}
	require.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, time.Millisecond)

	routine.Close()
}

func TestRoutinePermanentErrorStopsLoop(t *testing.T) {
	var got error
	done := make(chan struct{})
	routine := New("permanent", func(ctx context.Context) error {
		return NewPermanentError("boom")
	}, func(err error) {
		got = err
		close(done)
	})

	routine.Start(context.Background())
	<-done
	<-routine.Done()

	require.ErrorIs(t, got, &PermanentError{})
	require.Contains(t, got.Error(), "boom")
}

func TestRoutineMaxConsecutiveErrors(t *testing.T) {
	var calls atomic.Int32
	var got error
	done := make(chan struct{})
	routine := New("failing", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("transient")
	}, func(err error) {
		got = err
		close(done)
	}).WithMaxConsecutiveErrors(3)

	routine.Start(context.Background())
	<-done
	<-routine.Done()

	require.Equal(t, int32(3), calls.Load())
	require.ErrorIs(t, got, &PermanentError{})
	require.Contains(t, got.Error(), "exceeded max consecutive errors")
}
