package taskcore

import (
	"sync/atomic"
	"time"
)

// TimeoutTask wraps an IdleTask with a "last activity" timestamp and a
// configurable duration, giving long-lived connections a way to keep
// themselves alive by calling RefreshTimeout on every read/write
// (spec.md §4.H).
type TimeoutTask struct {
	*IdleTask

	lastActivityMs atomic.Int64
	durationMs     atomic.Int64
	consumer       *Task
}

// NewTimeoutTask constructs a TimeoutTask that signals EventTimeout to
// consumer once duration elapses with no RefreshTimeout call, dispatched
// by thread. The timer starts armed, as if RefreshTimeout had just been
// called.
func NewTimeoutTask(pool *TaskThreadPool, thread *IdleTaskThread, consumer *Task, duration time.Duration) *TimeoutTask {
	tt := &TimeoutTask{consumer: consumer}
	tt.durationMs.Store(duration.Milliseconds())
	tt.IdleTask = NewIdleTask(pool, thread, tt.run)
	tt.RefreshTimeout()
	return tt
}

// RefreshTimeout records activity now and re-arms the underlying idle
// timer for the full configured duration (spec.md §4.H).
func (tt *TimeoutTask) RefreshTimeout() {
	tt.lastActivityMs.Store(nowMillis())
	tt.SetIdleTimer(tt.durationMs.Load())
}

// SetTimeoutDuration changes the configured duration. It does not by
// itself re-arm the timer; call RefreshTimeout to apply the new
// duration against a fresh activity timestamp.
func (tt *TimeoutTask) SetTimeoutDuration(duration time.Duration) {
	tt.durationMs.Store(duration.Milliseconds())
}

// run is the IdleTask's Run customization point (spec.md §4.H): when
// the idle timer fires, check whether the configured duration has
// actually elapsed since the last recorded activity. If so, signal
// EventTimeout to the designated consumer. Otherwise the timer fired
// early because of an intervening RefreshTimeout; rearm for the
// remainder rather than firing a spurious timeout.
func (tt *TimeoutTask) run(_ *Task, _ EventMask) int64 {
	now := nowMillis()
	elapsed := now - tt.lastActivityMs.Load()
	duration := tt.durationMs.Load()
	if elapsed >= duration {
		tt.consumer.Signal(EventTimeout)
		return 0
	}
	tt.SetIdleTimer(duration - elapsed)
	return 0
}
