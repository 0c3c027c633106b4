package taskcore

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// TaskThreadPool partitions workers into a short-task class and a
// blocking class, each with its own round-robin picker (spec.md §4.F).
// Resizing after AddThreads has been called is not supported — per
// spec.md §1's Non-goals, dynamic pool resize after start is out of
// scope; SetNumShortTaskThreads/SetNumBlockingTaskThreads only take
// effect on the next AddThreads call from a stopped pool.
type TaskThreadPool struct {
	opts poolOptions

	mu      sync.RWMutex
	short   []*TaskThread
	blocked []*TaskThread
	running bool

	shortPicker   atomic.Uint64
	blockedPicker atomic.Uint64

	metrics *Metrics
}

// NewTaskThreadPool constructs a pool with the given options. The pool
// is inert until AddThreads is called.
func NewTaskThreadPool(opts ...PoolOption) (*TaskThreadPool, error) {
	cfg, err := resolvePoolOptions(opts)
	if err != nil {
		return nil, err
	}
	p := &TaskThreadPool{opts: *cfg}
	if cfg.metricsEnabled {
		p.metrics = newMetrics()
	}
	return p, nil
}

// SetNumShortTaskThreads overrides the short-task worker count used by
// the next AddThreads call (spec.md §6, "set_num_short_task_threads").
// It is an error to call this while the pool is running.
func (p *TaskThreadPool) SetNumShortTaskThreads(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrPoolAlreadyRunning
	}
	p.opts.numShortTaskThreads = n
	return nil
}

// SetNumBlockingTaskThreads overrides the blocking-task worker count
// used by the next AddThreads call (spec.md §6,
// "set_num_blocking_task_threads").
func (p *TaskThreadPool) SetNumBlockingTaskThreads(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrPoolAlreadyRunning
	}
	p.opts.numBlockingTaskThreads = n
	return nil
}

// AddThreads starts the pool's worker goroutines (spec.md §4.F,
// "Threads are created on add_threads"). Per spec.md §6, process-wide
// state follows a strict init-then-use-then-teardown lifecycle and
// double-init is a no-op: calling AddThreads on an already-running pool
// does nothing and returns nil.
func (p *TaskThreadPool) AddThreads() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	p.short = make([]*TaskThread, p.opts.numShortTaskThreads)
	for i := range p.short {
		p.short[i] = newTaskThread(p, false, fmt.Sprintf("short-%d", i))
	}
	p.blocked = make([]*TaskThread, p.opts.numBlockingTaskThreads)
	for i := range p.blocked {
		p.blocked[i] = newTaskThread(p, true, fmt.Sprintf("blocking-%d", i))
	}

	for _, th := range p.short {
		th.start()
	}
	for _, th := range p.blocked {
		th.start()
	}
	p.running = true
	return nil
}

// RemoveThreads signals every worker to stop after its current
// iteration and waits for all of them to exit (spec.md §4.F, "joined on
// remove_threads"). Tasks still linked into a worker's queue or timer
// heap are abandoned; callers wanting a clean shutdown should kill
// every outstanding task first (spec.md §5). Calling it on a pool that
// was never started (or already stopped) is a no-op.
func (p *TaskThreadPool) RemoveThreads() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	short, blocked := p.short, p.blocked
	p.running = false
	p.mu.Unlock()

	for _, th := range short {
		th.requestStop()
	}
	for _, th := range blocked {
		th.requestStop()
	}
	for _, th := range short {
		th.join()
	}
	for _, th := range blocked {
		th.join()
	}
	return nil
}

// Metrics returns the pool's latency/throughput aggregator, or nil if
// WithPoolMetrics was not enabled.
func (p *TaskThreadPool) Metrics() *Metrics { return p.metrics }

// pickShort returns the next short-task worker via round-robin
// (spec.md §4.D step 3, §8 invariant 6 "round-robin fairness"). Calling
// it on a pool configured with zero short-task threads is a programmer
// error: there is no worker a signaled short task could ever run on.
func (p *TaskThreadPool) pickShort() *TaskThread {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := len(p.short)
	if n == 0 {
		invariantViolation("signaled a short task on a pool with zero short-task threads")
	}
	i := p.shortPicker.Add(1) - 1
	return p.short[i%uint64(n)]
}

// pickBlocking returns the next blocking-task worker via round-robin.
// Calling it on a pool configured with zero blocking-task threads is a
// programmer error, for the same reason as pickShort.
func (p *TaskThreadPool) pickBlocking() *TaskThread {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := len(p.blocked)
	if n == 0 {
		invariantViolation("signaled a blocking task on a pool with zero blocking-task threads")
	}
	i := p.blockedPicker.Add(1) - 1
	return p.blocked[i%uint64(n)]
}
