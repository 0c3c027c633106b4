package taskcore

import (
	"time"
)

// minWaitTime bounds how long a TaskThread blocks in DequeueBlocking when
// its local timer heap is empty (spec.md §4.E, "kMinWaitTime").
const minWaitTime = 10 * time.Millisecond

// TaskThread is one worker in a TaskThreadPool: a goroutine that owns a
// private timer heap (no lock needed, spec.md §5) and drains a blocking
// event queue shared with Task.Signal (spec.md §4.E).
type TaskThread struct {
	name     string
	queue    *BlockingQueue
	timers   *Heap
	pool     *TaskThreadPool
	blocking bool

	stop chan struct{}
	done chan struct{}
}

func newTaskThread(pool *TaskThreadPool, blocking bool, name string) *TaskThread {
	return &TaskThread{
		name:     name,
		queue:    NewBlockingQueue(),
		timers:   NewHeap(),
		pool:     pool,
		blocking: blocking,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns the worker's debug name.
func (th *TaskThread) Name() string { return th.name }

// enqueueTask links t onto this worker's event queue (spec.md §4.D's
// thread-selection outcome lands here).
func (th *TaskThread) enqueueTask(t *Task) {
	th.queue.Enqueue(t.queueNode)
}

func (th *TaskThread) start() {
	go th.run()
}

// requestStop asks the worker's loop to exit after its current
// iteration; it does not wait for the goroutine to exit (see join).
func (th *TaskThread) requestStop() {
	close(th.stop)
}

// join blocks until the worker's goroutine has returned.
func (th *TaskThread) join() {
	<-th.done
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// run is the worker's main loop (spec.md §4.E).
func (th *TaskThread) run() {
	defer close(th.done)
	for {
		select {
		case <-th.stop:
			return
		default:
		}

		waitMs := minWaitTime.Milliseconds()
		if min := th.timers.PeekMin(); min != nil {
			if w := min.Value() - nowMillis(); w > 0 {
				waitMs = w
			} else {
				waitMs = 0
			}
		}

		node := th.queue.DequeueBlocking(time.Duration(waitMs) * time.Millisecond)
		if node == nil {
			now := nowMillis()
			for {
				min := th.timers.PeekMin()
				if min == nil || min.Value() > now {
					break
				}
				hn := th.timers.ExtractMin()
				t := hn.Payload().(*Task)
				// Fold EventIdle in as Signal would. A task that is already
				// alive sits in an event queue and runs from there with the
				// idle bit included.
				if old := t.events.Or(uint64(EventIdle | EventAlive)); old&uint64(EventAlive) == 0 {
					th.runTask(t)
				}
			}
			continue
		}

		t := node.Payload().(*Task)
		// Coalesce: the task was also armed in this thread's timer
		// heap (an earlier run() returned d>0) but a new signal beat
		// the timer to the punch. Cancel the stale timer entry so the
		// task runs exactly once for both triggers (spec.md §4.E).
		if t.timerNode.Owner() == th.timers {
			th.timers.Remove(t.timerNode)
		}
		th.runTask(t)
	}
}

// runTask implements spec.md §4.E's run_task: invoke Run exactly once,
// interpret its return value, then race-free-clear ALIVE.
func (th *TaskThread) runTask(t *Task) {
	wasLocked := t.writeLock.Load()
	// A pin left by ForceSameThread in the previous run has routed this
	// invocation; drop it now unless CallLocked holds it.
	if !wasLocked {
		t.useThisThread.Store(nil)
	}

	t.runningOn = th
	// The framework calls GetEvents on the task's behalf: this makes
	// the "call get_events() at least once" requirement in spec.md
	// §4.D structurally impossible to violate, rather than relying on
	// every Run implementation to remember it.
	events := t.GetEvents()
	start := time.Now()
	d := th.safeRun(t, events)
	th.pool.metrics.observe(float64(time.Since(start).Microseconds()) / 1000)
	t.runningOn = nil
	t.inRunCount.Add(1)

	switch {
	case d == -1:
		th.deleteTask(t)
		return
	case d > 0:
		th.timers.Insert(t.timerNode, nowMillis()+d)
	}

	for {
		old := t.events.Load()
		if old&^uint64(EventAlive) != 0 {
			// A signal landed (or is still pending) during run(); hand
			// the task straight back onto this thread's queue without
			// ever clearing ALIVE, so no bit is lost (spec.md §8,
			// invariant 3).
			th.enqueueTask(t)
			break
		}
		if t.events.CompareAndSwap(old, old&^uint64(EventAlive)) {
			break
		}
	}
}

// safeRun invokes t.run with panic recovery: a consumer's run() is its
// own responsibility (spec.md §7, "Consumer errors inside run() are the
// consumer's responsibility"), but a panicking task must not take down
// the worker goroutine it shares with every other task on this thread.
// A recovered panic is treated as d==0 (quiescent).
func (th *TaskThread) safeRun(t *Task, events EventMask) (d int64) {
	defer func() {
		if r := recover(); r != nil {
			getLogger().Err().
				Str(`worker`, th.name).
				Str(`task`, t.Name()).
				Any(`panic`, r).
				Log(`task run() panicked`)
			d = 0
		}
	}()
	return t.run(t, events)
}

// deleteTask implements the d==-1 branch of run_task: unlink t from
// every local structure it might still be in, then mark it dead so any
// further Signal is a safe no-op (spec.md §8 scenario S6).
func (th *TaskThread) deleteTask(t *Task) {
	if t.timerNode.Owner() == th.timers {
		th.timers.Remove(t.timerNode)
	}
	if t.queueNode.Owner() == th.queue.q {
		th.queue.Remove(t.queueNode)
	}
	t.dead.Store(true)
}
