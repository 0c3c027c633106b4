// logging.go holds package-level structured logging configuration.
//
// Package-level global variable is appropriate here because logging is
// an infrastructure cross-cutting concern shared by every pool, idle
// dispatcher, and event thread a process creates; per-instance logger
// plumbing would bloat every constructor's signature for no benefit.
//
// Usage:
//
//	taskcore.SetLogger(stumpy.L.New())
package taskcore

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var globalLogger struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

func init() {
	globalLogger.logger = stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))
}

// SetLogger installs the package-level structured logger used for task
// panic recovery and event-thread poll errors; lifecycle transitions are
// not logged. The default logger is disabled, so call sites incur no
// encoding overhead until a logger is installed.
func SetLogger(logger *logiface.Logger[*stumpy.Event]) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getLogger() *logiface.Logger[*stumpy.Event] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}
