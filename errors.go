package taskcore

import "errors"

// Sentinel errors returned by the core's lifecycle operations (spec.md
// §7: "Fatal OS errors ... propagate out of the lifecycle operation as
// an initialization failure"). Double-init/double-teardown of
// process-wide state (the pool, the idle dispatcher, the event thread)
// is a no-op per spec.md §6, not an error, so there is no
// "already running" or "not running" sentinel for those lifecycles;
// ErrPoolAlreadyRunning below covers only the narrower case of
// reconfiguring thread counts while the pool is live.
var (
	// ErrPoolAlreadyRunning is returned by SetNumShortTaskThreads and
	// SetNumBlockingTaskThreads when called while the pool is running;
	// per spec.md §1's Non-goals, dynamic resize after start is
	// unsupported, so the change can only take effect on the next
	// AddThreads call from a stopped pool.
	ErrPoolAlreadyRunning = errors.New("taskcore: pool is already running")

	ErrFDAlreadyRegistered = errors.New("taskcore: fd already registered")
	ErrFDNotRegistered     = errors.New("taskcore: fd not registered")
)

// invariantViolation panics with msg. Per spec.md §7, programmer-error
// invariants abort the process rather than propagate as an error, in
// every build. The checks that call it are enqueuing a queue node that
// is already linked and signaling a task whose worker class has no
// threads.
func invariantViolation(msg string) {
	panic("taskcore: invariant violated: " + msg)
}
