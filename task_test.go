package taskcore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, short, blocking int) *TaskThreadPool {
	t.Helper()
	pool, err := NewTaskThreadPool(
		WithShortTaskThreads(short),
		WithBlockingTaskThreads(blocking),
	)
	require.NoError(t, err)
	require.NoError(t, pool.AddThreads())
	t.Cleanup(func() {
		require.NoError(t, pool.RemoveThreads())
	})
	return pool
}

// TestTaskSignalCoalescing is scenario S3: with one worker and one task
// whose first run() sleeps 50ms, the signal at t=0 starts that run and
// the signals at t=10ms and t=20ms arrive while it is in flight; run()
// is invoked exactly twice: once for the first signal, once more for
// the coalesced signals that arrived while it was running.
func TestTaskSignalCoalescing(t *testing.T) {
	pool := newTestPool(t, 1, 0)

	var runs atomic.Int64
	var mu sync.Mutex
	var seenEvents []EventMask

	task := NewTask(pool, func(tt *Task, events EventMask) int64 {
		n := runs.Add(1)
		mu.Lock()
		seenEvents = append(seenEvents, events)
		mu.Unlock()
		if n == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		return 0
	})

	task.Signal(EventRead)
	time.Sleep(10 * time.Millisecond)
	task.Signal(EventWrite)
	time.Sleep(10 * time.Millisecond)
	task.Signal(EventRead)

	require.Eventually(t, func() bool {
		return runs.Load() == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 2, runs.Load())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seenEvents, 2)
	require.Equal(t, EventRead, seenEvents[0])
	require.Equal(t, EventWrite|EventRead, seenEvents[1])
}

func TestTaskSignalBeforeDeathIsNoOpAfterDeath(t *testing.T) {
	pool := newTestPool(t, 1, 0)

	done := make(chan struct{})
	task := NewTask(pool, func(tt *Task, events EventMask) int64 {
		if events&EventKill != 0 {
			close(done)
			return -1
		}
		return 0
	})
	task.Signal(EventKill)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was never killed")
	}

	// Allow the framework to finish unlinking before re-signaling.
	time.Sleep(20 * time.Millisecond)
	task.Signal(EventRead) // must not panic, re-link, or resurrect the task
}

func TestTaskNameTruncation(t *testing.T) {
	pool := newTestPool(t, 1, 0)
	task := NewTask(pool, func(*Task, EventMask) int64 { return 0 })

	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	task.SetName(long)
	require.Len(t, task.Name(), maxTaskNameLen)
}

func TestTaskInRunCount(t *testing.T) {
	pool := newTestPool(t, 1, 0)

	var runs atomic.Int64
	task := NewTask(pool, func(*Task, EventMask) int64 {
		runs.Add(1)
		return 0
	})
	task.Signal(EventStart)

	require.Eventually(t, func() bool {
		return task.InRunCount() == 1
	}, time.Second, 5*time.Millisecond)
}
