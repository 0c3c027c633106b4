package taskcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestTimeoutTaskFiresAfterInactivity covers spec.md §4.H: with no
// RefreshTimeout calls, EventTimeout is delivered to the consumer once
// the configured duration elapses.
func TestTimeoutTaskFiresAfterInactivity(t *testing.T) {
	pool := newTestPool(t, 1, 0)
	idle := newTestIdleThread(t, WithIdleLivenessInterval(5))

	timedOut := make(chan struct{})
	consumer := NewTask(pool, func(tt *Task, events EventMask) int64 {
		if events&EventTimeout != 0 {
			close(timedOut)
		}
		return 0
	})
	consumer.Signal(EventStart) // run the consumer once before the timeout is armed

	NewTimeoutTask(pool, idle, consumer, 30*time.Millisecond)

	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("consumer never received EventTimeout")
	}
}

// TestTimeoutTaskRefreshDefersExpiry covers refresh-on-activity:
// repeated RefreshTimeout calls keep pushing the deadline out, so the
// consumer sees no EventTimeout until the activity stops.
func TestTimeoutTaskRefreshDefersExpiry(t *testing.T) {
	pool := newTestPool(t, 1, 0)
	idle := newTestIdleThread(t, WithIdleLivenessInterval(5))

	timedOut := make(chan struct{})
	consumer := NewTask(pool, func(tt *Task, events EventMask) int64 {
		if events&EventTimeout != 0 {
			close(timedOut)
		}
		return 0
	})
	consumer.Signal(EventStart)

	tt := NewTimeoutTask(pool, idle, consumer, 40*time.Millisecond)

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		time.Sleep(15 * time.Millisecond)
		tt.RefreshTimeout()
	}

	select {
	case <-timedOut:
		t.Fatal("consumer timed out despite continuous activity")
	default:
	}

	// Now let it actually expire.
	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("consumer never timed out once activity stopped")
	}
}

func TestTimeoutTaskSetDurationAppliesOnNextRefresh(t *testing.T) {
	pool := newTestPool(t, 1, 0)
	idle := newTestIdleThread(t, WithIdleLivenessInterval(5))

	consumer := NewTask(pool, func(*Task, EventMask) int64 { return 0 })
	consumer.Signal(EventStart)

	tt := NewTimeoutTask(pool, idle, consumer, time.Second)
	tt.SetTimeoutDuration(20 * time.Millisecond)
	require.EqualValues(t, 20, tt.durationMs.Load())

	tt.RefreshTimeout()
	require.EqualValues(t, 20, tt.durationMs.Load())
}
