// Package taskcore provides the scheduling core of a long-running
// network service: a small, fixed pool of worker threads that
// multiplexes event-driven socket work, time-triggered idle work, and
// blocking work, using an intrusive min-heap timer wheel and
// locked/blocking queues for wakeups.
//
// # Architecture
//
// Work is represented as a [Task]: a latched event bitmask plus a
// cooperative run() contract. A [TaskThread] drains a blocking event
// queue and owns a private timer heap; a [TaskThreadPool] partitions
// workers into a short-task class and a blocking class, each with an
// independent round-robin picker. An [IdleTaskThread] is a single
// shared dispatcher that delivers delayed wakeups to [IdleTask]
// instances via the normal Task.Signal path. [TimeoutTask] builds a
// refresh-on-activity timeout on top of IdleTask. An [EventThread]
// translates OS readiness notifications (epoll on Linux, kqueue on
// Darwin) into task events via an [EventContext].
//
// # Concurrency model
//
// Scheduling is parallel and preemptively scheduled across worker
// goroutines; task code itself runs cooperatively — run() is never
// preempted by the framework, so a long-running run() blocks exactly
// one worker. Two signals on a task that is not currently alive
// coalesce into a single enqueue; run() is never re-entered for the
// same task while a prior invocation is in flight.
//
// # Platform support
//
// I/O readiness uses platform-native mechanisms:
//   - Linux: epoll, with an eventfd wakeup
//   - Darwin: kqueue, with a self-pipe wakeup
//
// # Non-goals
//
// Preemption, priority inheritance, work stealing, fair scheduling
// across tasks, cross-process scheduling, persistence of scheduled work
// across restarts, and dynamic resizing of a pool after AddThreads has
// been called are explicitly out of scope.
package taskcore
