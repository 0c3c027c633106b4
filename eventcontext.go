package taskcore

import "sync/atomic"

// EventContext binds a file descriptor to a task on an EventThread
// (spec.md §3, §4.C).
type EventContext struct {
	fd     int
	token  uint64
	task   *Task
	thread *EventThread
	edge   atomic.Bool
}

// FD returns the underlying file descriptor.
func (ec *EventContext) FD() int { return ec.fd }

// RequestEvent asks the OS readiness system to report the next
// transition matching mask (EventRead and/or EventWrite). For
// level-triggered contexts this is one-shot: run() must call
// RequestEvent again to keep receiving notifications. For
// edge-triggered contexts the registration persists until a
// RequestEvent made after SetMode(false) replaces it (spec.md §4.C).
func (ec *EventContext) RequestEvent(mask EventMask) error {
	return ec.thread.source.modify(ec.fd, ec.token, mask, ec.edge.Load())
}

// SetMode switches between edge-triggered (true) and level-triggered
// (false) delivery for subsequent RequestEvent calls.
func (ec *EventContext) SetMode(edgeTriggered bool) {
	ec.edge.Store(edgeTriggered)
}
