package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Deepreo/mathengine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	e, err := NewExecutor(WithConfig(Config{StopTimeout: time.Second}))
	require.NoError(t, err)
	e.Start()
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func TestExecutor_ScheduleImmediate(t *testing.T) {
	e := newTestExecutor(t)

	done := make(chan struct{})
	err := e.Schedule("now", 0, func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run in time")
	}
	assert.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestExecutor_RunsAsynchronously(t *testing.T) {
	e := newTestExecutor(t)

	var ran atomic.Bool
	require.NoError(t, e.Schedule("async", 0, func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		ran.Store(true)
		return nil
	}))
	assert.False(t, ran.Load(), "Schedule must return before the job runs")
	assert.Eventually(t, ran.Load, 2*time.Second, 10*time.Millisecond)
}

func TestExecutor_ScheduleDelayed(t *testing.T) {
	e := newTestExecutor(t)

	start := time.Now()
	done := make(chan time.Time, 1)
	require.NoError(t, e.Schedule("delayed", time.Second, func(ctx context.Context) error {
		done <- time.Now()
		return nil
	}))
	assert.Equal(t, 1, e.Pending())

	select {
	case firedAt := <-done:
		assert.GreaterOrEqual(t, firedAt.Sub(start), 900*time.Millisecond)
	case <-time.After(3 * time.Second):
		t.Fatal("delayed job did not run in time")
	}
}

func TestExecutor_RunsOnce(t *testing.T) {
	e := newTestExecutor(t)

	var runs atomic.Int32
	require.NoError(t, e.Schedule("once", 0, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestExecutor_DuplicateName(t *testing.T) {
	e := newTestExecutor(t)

	noop := func(ctx context.Context) error { return nil }
	require.NoError(t, e.Schedule("dup", time.Minute, noop))
	assert.ErrorContains(t, e.Schedule("dup", time.Minute, noop), "already exists")
}

func TestExecutor_CancelAll(t *testing.T) {
	e := newTestExecutor(t)

	var runs atomic.Int32
	count := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}
	require.NoError(t, e.Schedule("job1", time.Second, count))
	require.NoError(t, e.Schedule("job2", time.Second, count))
	assert.Equal(t, 2, e.Pending())

	require.NoError(t, e.CancelAll())
	assert.Zero(t, e.Pending())

	time.Sleep(1500 * time.Millisecond)
	assert.Zero(t, runs.Load(), "cancelled jobs must not run")

	// The executor stays usable after a bulk cancel.
	require.NoError(t, e.Schedule("job1", 0, count))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestExecutor_Middleware(t *testing.T) {
	e := newTestExecutor(t)

	var middlewareCalled atomic.Bool
	e.Use(func(next core.JobFunc) core.JobFunc {
		return func(ctx context.Context) error {
			middlewareCalled.Store(true)
			return next(ctx)
		}
	})

	done := make(chan struct{})
	require.NoError(t, e.Schedule("middleware", 0, func(ctx context.Context) error {
		close(done)
		return nil
	}))

	select {
	case <-done:
		assert.True(t, middlewareCalled.Load(), "middleware should have been called")
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run in time")
	}
}
