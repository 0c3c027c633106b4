package taskcore

import (
	"sync"
	"sync/atomic"
)

// EventThread translates OS readiness notifications into task events
// (spec.md §4.C). It owns the unique_id→Task map — a reader-writer
// lock, per spec.md §5 ("lookups are common, insertions and removals
// rare") — and the platform readinessSource.
type EventThread struct {
	opts   eventThreadOptions
	source readinessSource

	mu        sync.RWMutex
	byToken   map[uint64]*EventContext
	byFD      map[int]*EventContext
	nextToken atomic.Uint64

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewEventThread constructs an EventThread. It is inert until Start.
func NewEventThread(opts ...EventThreadOption) (*EventThread, error) {
	cfg, err := resolveEventThreadOptions(opts)
	if err != nil {
		return nil, err
	}
	return &EventThread{
		opts:    *cfg,
		source:  newReadinessSource(),
		byToken: make(map[uint64]*EventContext),
		byFD:    make(map[int]*EventContext),
	}, nil
}

// Start initializes the readiness primitive and begins the dispatch
// loop (spec.md §6, "start"). Per spec.md §6, double-init is a no-op:
// calling Start while already running does nothing and returns nil.
func (et *EventThread) Start() error {
	et.mu.Lock()
	defer et.mu.Unlock()
	if et.running {
		return nil
	}
	if err := et.source.init(); err != nil {
		return err
	}
	et.stop = make(chan struct{})
	et.done = make(chan struct{})
	et.running = true
	go et.run()
	return nil
}

// Stop interrupts the dispatch loop, waits for it to exit, and closes
// the readiness primitive (spec.md §6, "stop"). Calling it on an
// EventThread that was never started (or already stopped) is a no-op.
func (et *EventThread) Stop() error {
	et.mu.Lock()
	if !et.running {
		et.mu.Unlock()
		return nil
	}
	et.running = false
	done := et.done
	et.mu.Unlock()

	close(et.stop)
	_ = et.source.wakeSelf()
	<-done
	return et.source.close()
}

// Register binds fd to task, returning an EventContext used to request
// and reconfigure notifications (spec.md §4.C). The context starts with
// no armed interest; call RequestEvent to arm it. Its initial mode is
// the EventThread's WithEdgeTriggered default; call EventContext.SetMode
// to override it per-fd before the next RequestEvent. Registering an fd
// that is already registered on this EventThread returns
// ErrFDAlreadyRegistered, mirroring the teacher's FastPoller.RegisterFD.
func (et *EventThread) Register(fd int, task *Task) (*EventContext, error) {
	et.mu.Lock()
	if _, exists := et.byFD[fd]; exists {
		et.mu.Unlock()
		return nil, ErrFDAlreadyRegistered
	}
	token := et.nextToken.Add(1)
	edgeTriggered := et.opts.edgeTriggered
	ec := &EventContext{fd: fd, token: token, task: task, thread: et}
	ec.edge.Store(edgeTriggered)
	et.byToken[token] = ec
	et.byFD[fd] = ec
	et.mu.Unlock()

	if err := et.source.register(fd, token, 0, edgeTriggered); err != nil {
		et.mu.Lock()
		delete(et.byToken, token)
		delete(et.byFD, fd)
		et.mu.Unlock()
		return nil, err
	}
	return ec, nil
}

// Unregister removes ec's fd from the readiness primitive and its
// token from the id→task map. Unregistering an EventContext that was
// already unregistered returns ErrFDNotRegistered.
func (et *EventThread) Unregister(ec *EventContext) error {
	et.mu.Lock()
	if _, exists := et.byToken[ec.token]; !exists {
		et.mu.Unlock()
		return ErrFDNotRegistered
	}
	delete(et.byToken, ec.token)
	delete(et.byFD, ec.fd)
	et.mu.Unlock()
	return et.source.unregister(ec.fd)
}

// run is the dispatch loop described in spec.md §4.C.
func (et *EventThread) run() {
	defer close(et.done)
	for {
		select {
		case <-et.stop:
			return
		default:
		}

		events, err := et.source.wait(1000)
		if err != nil {
			// Transient OS errors (interrupted syscalls) are retried
			// silently; anything else is logged and retried too, since
			// the event thread has no channel to propagate a runtime
			// error to (spec.md §7).
			getLogger().Err().Err(err).Log(`event thread poll error`)
			continue
		}

		for _, ev := range events {
			et.mu.RLock()
			ec, ok := et.byToken[ev.token]
			et.mu.RUnlock()
			if !ok {
				// The fd behind this token was closed/recycled between
				// the readiness notification and dispatch; drop the
				// event (spec.md §4.C).
				continue
			}
			ec.task.Signal(ev.mask)
		}
	}
}
