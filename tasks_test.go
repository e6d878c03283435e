package stabforest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineRuntimeRunsSynchronouslyAndKeepsFirstError(t *testing.T) {
	r := NewInlineRuntime()
	var ran int32

	r.Submit(func() error { atomic.AddInt32(&ran, 1); return nil })
	sentinel := errors.New("boom")
	r.Submit(func() error { atomic.AddInt32(&ran, 1); return sentinel })
	r.Submit(func() error { atomic.AddInt32(&ran, 1); return nil })

	require.Equal(t, int32(3), ran, "the task after the failing one must still run")
	require.ErrorIs(t, r.Join(context.Background()), sentinel)
}

func TestGoroutinePerTaskRuntimeJoinsAllTasks(t *testing.T) {
	r := NewGoroutinePerTaskRuntime()
	var count int32
	for i := 0; i < 50; i++ {
		r.Submit(func() error { atomic.AddInt32(&count, 1); return nil })
	}
	require.NoError(t, r.Join(context.Background()))
	require.Equal(t, int32(50), count)
}

func TestGoroutinePerTaskRuntimePropagatesError(t *testing.T) {
	r := NewGoroutinePerTaskRuntime()
	sentinel := errors.New("task failed")
	r.Submit(func() error { return nil })
	r.Submit(func() error { return sentinel })
	require.ErrorIs(t, r.Join(context.Background()), sentinel)
}

func TestBoundedPoolRuntimeRespectsWorkerCount(t *testing.T) {
	r := NewBoundedPoolRuntime(context.Background(), 4, nil)
	var inFlight, maxInFlight int32
	for i := 0; i < 100; i++ {
		r.Submit(func() error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
	}
	require.NoError(t, r.Join(context.Background()))
	require.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), 4)
}

func TestBoundedPoolRuntimePropagatesError(t *testing.T) {
	r := NewBoundedPoolRuntime(context.Background(), 2, nil)
	sentinel := errors.New("bounded task failed")
	for i := 0; i < 10; i++ {
		i := i
		r.Submit(func() error {
			if i == 5 {
				return sentinel
			}
			return nil
		})
	}
	require.ErrorIs(t, r.Join(context.Background()), sentinel)
}
