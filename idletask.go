package taskcore

import (
	"sync"
	"time"
)

// IdleTaskThread is the single process-wide dispatcher described in
// spec.md §4.G: it owns one shared min-heap of (deadline_ms, IdleTask)
// pairs and signals each IdleTask's underlying Task when its deadline
// elapses. It does not run task code itself.
//
// Per spec.md §9's design note on global mutable state, this is an
// explicit object constructed and wired by the caller rather than a
// package-level singleton; nothing prevents a process from running more
// than one, though ordinarily there is exactly one.
type IdleTaskThread struct {
	opts idleOptions

	mu   sync.Mutex
	cond *sync.Cond
	heap *Heap

	initialized bool
	stopping    bool
	done        chan struct{}
}

// NewIdleTaskThread constructs a dispatcher. It does nothing until
// Initialize is called.
func NewIdleTaskThread(opts ...IdleOption) (*IdleTaskThread, error) {
	cfg, err := resolveIdleOptions(opts)
	if err != nil {
		return nil, err
	}
	it := &IdleTaskThread{opts: *cfg, heap: NewHeap()}
	it.cond = sync.NewCond(&it.mu)
	return it, nil
}

// Initialize starts the dispatcher goroutine. Double-init is a no-op
// (spec.md §6).
func (it *IdleTaskThread) Initialize() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.initialized {
		return nil
	}
	it.initialized = true
	it.stopping = false
	it.done = make(chan struct{})
	go it.run()
	return nil
}

// Release stops the dispatcher and waits for its goroutine to exit.
// Calling Release on an uninitialized (or already released) dispatcher
// is a no-op.
func (it *IdleTaskThread) Release() error {
	it.mu.Lock()
	if !it.initialized {
		it.mu.Unlock()
		return nil
	}
	it.initialized = false
	it.stopping = true
	it.cond.Broadcast()
	done := it.done
	it.mu.Unlock()
	<-done
	return nil
}

// run is the dispatcher's main loop (spec.md §4.G).
func (it *IdleTaskThread) run() {
	it.mu.Lock()
	defer it.mu.Unlock()
	defer close(it.done)

	for {
		for it.heap.Len() == 0 {
			if it.stopping {
				return
			}
			it.timedWaitLocked(it.opts.livenessInterval)
		}

		now := nowMillis()
		for it.heap.Len() > 0 && it.heap.PeekMin().Value() <= now {
			hn := it.heap.ExtractMin()
			task := hn.Payload().(*Task)
			task.Signal(EventIdle)
		}

		if it.stopping && it.heap.Len() == 0 {
			return
		}

		if it.heap.Len() > 0 {
			wait := it.heap.PeekMin().Value() - nowMillis()
			if wait < 0 {
				wait = 0
			}
			it.timedWaitLocked(wait)
		}
	}
}

// timedWaitLocked waits on the condition variable for at most ms
// milliseconds, using the time.AfterFunc-broadcast idiom since
// sync.Cond has no native timeout. Must be called with it.mu held; it
// releases and reacquires the lock as part of cond.Wait.
func (it *IdleTaskThread) timedWaitLocked(ms int64) {
	if ms <= 0 {
		return
	}
	woken := make(chan struct{})
	timer := time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		it.mu.Lock()
		defer it.mu.Unlock()
		select {
		case <-woken:
		default:
			it.cond.Broadcast()
		}
	})
	defer func() {
		close(woken)
		timer.Stop()
	}()
	it.cond.Wait()
}

// IdleTask wraps a Task with a single scheduled wakeup, dispatched by a
// shared IdleTaskThread rather than a TaskThread's own timer heap
// (spec.md §4.G; §3 invariant 2 is what lets this reuse Task.timerNode
// directly instead of allocating a second heap node).
type IdleTask struct {
	*Task
	thread *IdleTaskThread
}

// NewIdleTask constructs an IdleTask dispatched by thread, running run
// when its timer fires or it is otherwise signaled.
func NewIdleTask(pool *TaskThreadPool, thread *IdleTaskThread, run RunFunc) *IdleTask {
	return &IdleTask{Task: NewTask(pool, run), thread: thread}
}

// SetIdleTimer arms (or re-arms) the task's wakeup for dMs from now
// (spec.md §4.G). If the task's node is already in the shared heap, its
// deadline is updated in place (re-arm semantics: the new deadline may
// be later or, within measurement resolution, unchanged); otherwise the
// node is inserted.
func (it *IdleTask) SetIdleTimer(dMs int64) {
	deadline := nowMillis() + dMs
	it.thread.mu.Lock()
	defer it.thread.mu.Unlock()
	if it.Task.timerNode.Owner() == it.thread.heap {
		it.thread.heap.Update(it.Task.timerNode, deadline, HintExpectDown)
	} else {
		it.thread.heap.Insert(it.Task.timerNode, deadline)
	}
	it.thread.cond.Signal()
}

// CancelTimeout removes the task's node from the shared heap if
// present; a no-op otherwise (spec.md §4.G).
func (it *IdleTask) CancelTimeout() {
	it.thread.mu.Lock()
	defer it.thread.mu.Unlock()
	it.thread.heap.Remove(it.Task.timerNode)
}
