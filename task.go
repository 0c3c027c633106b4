package taskcore

import (
	"sync/atomic"
)

// EventMask is the set of event bits a Task can be signaled with
// (spec.md §3). The high bit, EventAlive, is multiplexed into the same
// word as the event bits: it is set whenever the task is linked into
// some TaskThread's event queue.
type EventMask uint64

const (
	// EventKill is the canonical cooperative-cancellation signal
	// (spec.md §5). A task observes it via GetEvents and returns -1.
	EventKill EventMask = 1 << iota
	// EventIdle is delivered by IdleTaskThread when a scheduled wakeup fires.
	EventIdle
	// EventStart is the first event a newly constructed task typically receives.
	EventStart
	// EventTimeout is delivered by TimeoutTask when an activity timeout expires.
	EventTimeout
	// EventRead indicates a registered file descriptor is readable.
	EventRead
	// EventWrite indicates a registered file descriptor is writable.
	EventWrite
	// EventUpdate is a generic "re-examine state" signal for consumer use.
	EventUpdate

	// EventAlive is the high bit of the 64-bit event word: set while the
	// task is linked into a TaskThread's event queue (spec.md §3).
	EventAlive EventMask = 1 << 63
)

const maxTaskNameLen = 47

// RunFunc is a task's run() customization point (spec.md §4.D "Run
// contract"). It receives the events observed via GetEvents for this
// invocation and must return:
//
//	0:   quiescent; do not reinvoke until the next Signal.
//	d>0: reinvoke after d milliseconds with EventIdle added.
//	-1:  delete this task.
//
// The owning TaskThread calls Task.GetEvents itself just before each
// invocation and passes the result as events, so implementations need
// not call it. Bits signaled while Run executes cause one more
// invocation on the same thread (spec.md §4.D).
type RunFunc func(t *Task, events EventMask) (delayMs int64)

// Task is the framework's base unit of scheduled work (spec.md §3,
// §4.D). A Task is constructed unlinked and not alive; its first Signal
// links it into a TaskThread's event queue, at which point the
// framework owns it until Run returns -1 or the application sends
// EventKill and waits for the task to quiesce.
//
// Task is safe to Signal from any goroutine. Run is never invoked
// concurrently with itself for the same Task (spec.md §5 "Intra-task").
type Task struct {
	events atomic.Uint64

	useThisThread atomic.Pointer[TaskThread]
	defaultThread atomic.Pointer[TaskThread]
	writeLock     atomic.Bool

	// timerNode and queueNode are this task's intrusive links into a
	// timer heap and an event queue, respectively (spec.md §3 invariants
	// 1 and 2: each is linked into at most one owner at a time).
	timerNode *HNode
	queueNode *QNode

	name atomic.Pointer[string]

	run  RunFunc
	pool *TaskThreadPool

	// blocking selects which of the pool's two round-robin pickers is
	// used when no thread is pinned (spec.md §4.D step 3).
	blocking bool

	// runningOn is set by the owning TaskThread for the duration of Run,
	// so ForceSameThread/CallLocked can resolve "the currently running
	// thread" (spec.md §4.D). Only ever touched by the single thread
	// currently running this task, per the no-double-run invariant.
	runningOn *TaskThread

	inRunCount atomic.Int64
	dead       atomic.Bool
}

// NewTask constructs an unlinked, not-alive task bound to pool, running run
// on the short-task worker class by default (spec.md §4.D's default
// picker). Use UseBlockingClass to place long/IO-blocking tasks on the
// pool's blocking worker class instead.
func NewTask(pool *TaskThreadPool, run RunFunc) *Task {
	t := &Task{run: run, pool: pool}
	t.timerNode = NewHNode(t)
	t.queueNode = NewQNode(t)
	return t
}

// UseBlockingClass selects the pool's blocking worker class for this
// task's default (unpinned) thread picker.
func (t *Task) UseBlockingClass(blocking bool) { t.blocking = blocking }

// SetDefaultThread sets a preferred worker used until explicitly
// changed (spec.md §3, "default_thread").
func (t *Task) SetDefaultThread(th *TaskThread) { t.defaultThread.Store(th) }

// SetName copies up to 47 bytes of name for debugging (spec.md §3).
func (t *Task) SetName(name string) {
	if len(name) > maxTaskNameLen {
		name = name[:maxTaskNameLen]
	}
	t.name.Store(&name)
}

// Name returns the task's debug name, or "" if never set.
func (t *Task) Name() string {
	if p := t.name.Load(); p != nil {
		return *p
	}
	return ""
}

// InRunCount returns the number of times Run has completed for this
// task (spec.md §6 Observability: "debug counters for in-run count").
func (t *Task) InRunCount() int64 { return t.inRunCount.Load() }

// Signal atomically ORs mask|EventAlive into the task's event word
// (spec.md §4.D). If EventAlive was not already set — i.e. this call
// observes the 0→1 transition of the alive bit — the task is enqueued
// onto exactly one TaskThread's event queue, per the thread-selection
// order in spec.md §4.D: use_this_thread, else default_thread, else the
// pool's round-robin picker for this task's class.
//
// Two Signal calls on an already-alive task coalesce into a single
// enqueue (spec.md §5, §8 invariant 3): the second call's bits are
// folded into events but no second link is created.
func (t *Task) Signal(mask EventMask) {
	if t.dead.Load() {
		return
	}
	for {
		old := t.events.Load()
		next := old | uint64(mask) | uint64(EventAlive)
		if old == next {
			return
		}
		if t.events.CompareAndSwap(old, next) {
			if old&uint64(EventAlive) == 0 {
				t.enqueueSelf()
			}
			return
		}
	}
}

// GetEvents atomically reads and clears all non-EventAlive bits. It
// must only be called from within Run (spec.md §4.D).
func (t *Task) GetEvents() EventMask {
	for {
		old := t.events.Load()
		cleared := old & uint64(EventAlive)
		if t.events.CompareAndSwap(old, cleared) {
			return EventMask(old &^ uint64(EventAlive))
		}
	}
}

// ForceSameThread pins use_this_thread to the thread currently running
// this task's Run, valid for the next invocation only (unless CallLocked
// is also used to make the pin persistent). Must be called from within
// Run (spec.md §4.D).
func (t *Task) ForceSameThread() {
	if th := t.runningOn; th != nil {
		t.useThisThread.Store(th)
	}
}

// CallLocked pins this task to the currently running thread persistently:
// use_this_thread stays set across invocations until UnlockThread is
// called (spec.md §4.E, "write_lock"). Must be called from within Run.
func (t *Task) CallLocked() {
	t.writeLock.Store(true)
	t.ForceSameThread()
}

// UnlockThread releases a persistent pin set by CallLocked, restoring
// the normal per-invocation thread reset.
func (t *Task) UnlockThread() {
	t.writeLock.Store(false)
}

// enqueueSelf implements the thread-selection order of spec.md §4.D
// step 1–3 and links queueNode into the chosen thread's event queue.
func (t *Task) enqueueSelf() {
	th := t.useThisThread.Load()
	if th == nil {
		th = t.defaultThread.Load()
	}
	if th == nil {
		th = t.pickThread()
	}
	th.enqueueTask(t)
}

func (t *Task) pickThread() *TaskThread {
	if t.blocking {
		return t.pool.pickBlocking()
	}
	return t.pool.pickShort()
}
