package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int64
}

func (c *countingSweeper) Sweep(context.Context) (int, int) {
	c.calls.Add(1)
	return 0, 0
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond())
}

func TestRunSweepsPeriodically(t *testing.T) {
	sweeper := &countingSweeper{}
	engine := New(sweeper, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)

	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() >= 3 })
	cancel()
	<-engine.done
}

func TestRunSweepsOnceImmediately(t *testing.T) {
	sweeper := &countingSweeper{}
	engine := New(sweeper, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)

	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() == 1 })
	cancel()
	<-engine.done
}

func TestBoundaryTimerWakesSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	engine := New(sweeper, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() == 1 })

	engine.ScheduleEnd("a1", time.Now().Add(30*time.Millisecond))
	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() >= 2 })
}

func TestCancelDisarmsTimers(t *testing.T) {
	sweeper := &countingSweeper{}
	engine := New(sweeper, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() == 1 })

	engine.ScheduleStart("a1", time.Now().Add(50*time.Millisecond))
	engine.ScheduleEnd("a1", time.Now().Add(50*time.Millisecond))
	engine.Cancel("a1")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int64(1), sweeper.calls.Load(), "cancelled timers must not wake the sweep")
}

func TestReschedulingReplacesTimer(t *testing.T) {
	sweeper := &countingSweeper{}
	engine := New(sweeper, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() == 1 })

	// Auto-extension style: push the boundary out before it fires.
	engine.ScheduleEnd("a1", time.Now().Add(time.Hour))
	engine.ScheduleEnd("a1", time.Now().Add(30*time.Millisecond))
	waitFor(t, time.Second, func() bool { return sweeper.calls.Load() >= 2 })
}
