package taskcore

// poolOptions holds configuration options for TaskThreadPool creation.
type poolOptions struct {
	numShortTaskThreads    int
	numBlockingTaskThreads int
	metricsEnabled         bool
}

// --- Pool Options ---

// PoolOption configures a TaskThreadPool instance.
type PoolOption interface {
	applyPool(*poolOptions) error
}

type poolOptionImpl struct {
	applyPoolFunc func(*poolOptions) error
}

func (o *poolOptionImpl) applyPool(opts *poolOptions) error {
	return o.applyPoolFunc(opts)
}

// WithShortTaskThreads sets the number of short-task worker threads
// created by AddThreads (spec.md §4.F, "set_num_short_task_threads").
func WithShortTaskThreads(n int) PoolOption {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.numShortTaskThreads = n
		return nil
	}}
}

// WithBlockingTaskThreads sets the number of blocking-task worker
// threads created by AddThreads (spec.md §4.F,
// "set_num_blocking_task_threads").
func WithBlockingTaskThreads(n int) PoolOption {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.numBlockingTaskThreads = n
		return nil
	}}
}

// WithPoolMetrics enables pool-wide run() latency metrics, aggregated
// across every worker.
// When enabled, metrics can be read via TaskThreadPool.Metrics().
func WithPoolMetrics(enabled bool) PoolOption {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

func resolvePoolOptions(opts []PoolOption) (*poolOptions, error) {
	cfg := &poolOptions{
		numShortTaskThreads:    1,
		numBlockingTaskThreads: 1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPool(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// idleOptions holds configuration options for the shared idle dispatcher.
type idleOptions struct {
	livenessInterval int64 // ms
}

// --- Idle Options ---

// IdleOption configures an IdleTaskThread instance.
type IdleOption interface {
	applyIdle(*idleOptions) error
}

type idleOptionImpl struct {
	applyIdleFunc func(*idleOptions) error
}

func (o *idleOptionImpl) applyIdle(opts *idleOptions) error {
	return o.applyIdleFunc(opts)
}

// WithIdleLivenessInterval overrides the 1-second maximum sleep the
// dispatcher uses while its heap is empty (spec.md §4.G step 1).
// Intended for tests that want a tighter bound on shutdown latency.
func WithIdleLivenessInterval(ms int64) IdleOption {
	return &idleOptionImpl{func(opts *idleOptions) error {
		opts.livenessInterval = ms
		return nil
	}}
}

func resolveIdleOptions(opts []IdleOption) (*idleOptions, error) {
	cfg := &idleOptions{livenessInterval: 1000}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyIdle(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// eventThreadOptions holds configuration options for an EventThread.
type eventThreadOptions struct {
	edgeTriggered bool
}

// --- Event Thread Options ---

// EventThreadOption configures an EventThread instance.
type EventThreadOption interface {
	applyEventThread(*eventThreadOptions) error
}

type eventThreadOptionImpl struct {
	applyEventThreadFunc func(*eventThreadOptions) error
}

func (o *eventThreadOptionImpl) applyEventThread(opts *eventThreadOptions) error {
	return o.applyEventThreadFunc(opts)
}

// WithEdgeTriggered sets the default registration mode for EventContexts
// created on this EventThread (spec.md §4.C: "For edge-triggered
// backends the registration persists until set_mode(false) is called").
func WithEdgeTriggered(enabled bool) EventThreadOption {
	return &eventThreadOptionImpl{func(opts *eventThreadOptions) error {
		opts.edgeTriggered = enabled
		return nil
	}}
}

func resolveEventThreadOptions(opts []EventThreadOption) (*eventThreadOptions, error) {
	cfg := &eventThreadOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyEventThread(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
