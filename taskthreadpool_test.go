package taskcore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPoolRoundRobinFairness is invariant 6: with N short-task workers
// and M tasks each signaled exactly once with no thread pinned, every
// worker ends up running floor(M/N) or ceil(M/N) tasks.
func TestPoolRoundRobinFairness(t *testing.T) {
	const numWorkers = 4
	const numTasks = 23

	pool, err := NewTaskThreadPool(
		WithShortTaskThreads(numWorkers),
		WithBlockingTaskThreads(0),
	)
	require.NoError(t, err)
	require.NoError(t, pool.AddThreads())
	defer func() { require.NoError(t, pool.RemoveThreads()) }()

	var mu sync.Mutex
	counts := make(map[string]int)
	var remaining atomic.Int64
	remaining.Store(numTasks)
	done := make(chan struct{})

	tasks := make([]*Task, numTasks)
	for i := range tasks {
		tasks[i] = NewTask(pool, func(tt *Task, events EventMask) int64 {
			mu.Lock()
			counts[tt.runningOn.Name()]++
			mu.Unlock()
			if remaining.Add(-1) == 0 {
				close(done)
			}
			return -1
		})
	}
	for _, task := range tasks {
		task.Signal(EventStart)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all tasks ran")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, counts, numWorkers)
	lo := numTasks / numWorkers
	hi := (numTasks + numWorkers - 1) / numWorkers
	for name, c := range counts {
		require.GreaterOrEqualf(t, c, lo, "worker %s ran %d tasks", name, c)
		require.LessOrEqualf(t, c, hi, "worker %s ran %d tasks", name, c)
	}
}

// TestPoolRemoveThreadsWithoutAddIsNoOp covers spec.md §6: process-wide
// lifecycle teardown without a prior start is a no-op, not an error.
func TestPoolRemoveThreadsWithoutAddIsNoOp(t *testing.T) {
	pool, err := NewTaskThreadPool()
	require.NoError(t, err)
	require.NoError(t, pool.RemoveThreads())
}

// TestPoolAddThreadsTwiceIsNoOp covers spec.md §6's "double-init is a
// no-op": a second AddThreads call while running does not replace the
// already-started workers or return an error.
func TestPoolAddThreadsTwiceIsNoOp(t *testing.T) {
	pool, err := NewTaskThreadPool(WithShortTaskThreads(2))
	require.NoError(t, err)
	require.NoError(t, pool.AddThreads())
	defer func() { require.NoError(t, pool.RemoveThreads()) }()

	first := pool.short
	require.NoError(t, pool.AddThreads())
	require.Same(t, first[0], pool.short[0])
}

func TestPoolSetNumThreadsWhileRunningFails(t *testing.T) {
	pool, err := NewTaskThreadPool()
	require.NoError(t, err)
	require.NoError(t, pool.AddThreads())
	defer func() { require.NoError(t, pool.RemoveThreads()) }()

	require.ErrorIs(t, pool.SetNumShortTaskThreads(2), ErrPoolAlreadyRunning)
	require.ErrorIs(t, pool.SetNumBlockingTaskThreads(2), ErrPoolAlreadyRunning)
}

// TestTaskDeleteFromRun is scenario S6: a task's run() returns -1, and
// the framework unlinks timer/queue nodes before the task is considered
// dead; a further Signal after that point is a safe no-op.
func TestTaskDeleteFromRun(t *testing.T) {
	pool := newTestPool(t, 1, 0)

	ran := make(chan struct{})
	task := NewTask(pool, func(tt *Task, events EventMask) int64 {
		close(ran)
		return -1
	})
	task.Signal(EventStart)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	require.Eventually(t, func() bool {
		return task.dead.Load()
	}, time.Second, 5*time.Millisecond)

	require.Nil(t, task.timerNode.Owner())
	require.Nil(t, task.queueNode.Owner())

	task.Signal(EventRead) // no-op: dead tasks never re-enqueue
	time.Sleep(20 * time.Millisecond)
	require.Nil(t, task.queueNode.Owner())
}

// TestPoolSignalShortTaskWithZeroShortThreadsPanics covers the
// programmer-error guard in pickShort: a pool configured with zero
// short-task threads has nowhere to run a signaled short task.
func TestPoolSignalShortTaskWithZeroShortThreadsPanics(t *testing.T) {
	pool := newTestPool(t, 0, 1)
	task := NewTask(pool, func(*Task, EventMask) int64 { return 0 })
	require.Panics(t, func() { task.Signal(EventStart) })
}

func TestPoolMetricsDisabledByDefault(t *testing.T) {
	pool, err := NewTaskThreadPool()
	require.NoError(t, err)
	require.Nil(t, pool.Metrics())
}

func TestPoolMetricsEnabled(t *testing.T) {
	pool, err := NewTaskThreadPool(WithPoolMetrics(true))
	require.NoError(t, err)
	require.NotNil(t, pool.Metrics())
	require.NoError(t, pool.AddThreads())
	defer func() { require.NoError(t, pool.RemoveThreads()) }()

	done := make(chan struct{})
	task := NewTask(pool, func(tt *Task, events EventMask) int64 {
		close(done)
		return 0
	})
	task.Signal(EventStart)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	require.Eventually(t, func() bool {
		return pool.Metrics().TasksRun() >= 1
	}, time.Second, 5*time.Millisecond)
}
