package taskcore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestTaskThreadTimerRearm covers run() returning d>0: the task is
// reinvoked after d milliseconds with EventIdle folded into events,
// without any external Signal (spec.md §4.E).
func TestTaskThreadTimerRearm(t *testing.T) {
	pool := newTestPool(t, 1, 0)

	var runs atomic.Int64
	var lastEvents atomic.Uint64
	start := time.Now()
	var firedAt atomic.Int64

	task := NewTask(pool, func(tt *Task, events EventMask) int64 {
		n := runs.Add(1)
		lastEvents.Store(uint64(events))
		if n == 1 {
			return 30
		}
		firedAt.Store(time.Since(start).Milliseconds())
		return 0
	})
	task.Signal(EventStart)

	require.Eventually(t, func() bool {
		return runs.Load() == 2
	}, time.Second, 5*time.Millisecond)

	require.EqualValues(t, EventIdle, EventMask(lastEvents.Load()))
	require.GreaterOrEqual(t, firedAt.Load(), int64(25))
}

// TestTaskThreadCoalescesTimerWithSignal: a task armed with a future
// timer that is also Signal-ed before the timer fires must run exactly
// once for the pair, not twice (spec.md §4.E's coalescing step).
func TestTaskThreadCoalescesTimerWithSignal(t *testing.T) {
	pool := newTestPool(t, 1, 0)

	var runs atomic.Int64
	var task *Task
	task = NewTask(pool, func(tt *Task, events EventMask) int64 {
		n := runs.Add(1)
		if n == 1 {
			return 200 // arm a long timer
		}
		return 0
	})
	task.Signal(EventStart)

	require.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Beat the 200ms timer with a real signal.
	time.Sleep(10 * time.Millisecond)
	task.Signal(EventUpdate)

	require.Eventually(t, func() bool {
		return runs.Load() == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(250 * time.Millisecond)
	require.EqualValues(t, 2, runs.Load())
}

func TestTaskThreadName(t *testing.T) {
	pool := newTestPool(t, 2, 1)
	names := map[string]bool{}
	for _, th := range pool.short {
		names[th.Name()] = true
	}
	for _, th := range pool.blocked {
		names[th.Name()] = true
	}
	require.Len(t, names, 3)
}
