package taskcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestQueueFIFO is scenario S2: enqueue A, B, C; iterating (newest
// first) yields C, B, A; dequeue yields A, then B, then C, then nil.
func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	a := NewQNode("A")
	b := NewQNode("B")
	c := NewQNode("C")

	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)
	require.Equal(t, 3, q.Len())

	var walked []any
	q.Each(func(payload any) bool {
		walked = append(walked, payload)
		return true
	})
	require.Equal(t, []any{"C", "B", "A"}, walked)

	require.Same(t, a, q.Dequeue())
	require.Same(t, b, q.Dequeue())
	require.Same(t, c, q.Dequeue())
	require.Nil(t, q.Dequeue())
}

func TestQueueEnqueueDequeueRoundTrip(t *testing.T) {
	q := NewQueue()
	n := NewQNode(1)
	q.Enqueue(n)
	require.Equal(t, 1, q.Len())
	require.Same(t, n, q.Dequeue())
	require.Equal(t, 0, q.Len())
	require.Nil(t, n.Owner())
}

func TestQueueDoubleEnqueuePanics(t *testing.T) {
	q := NewQueue()
	n := NewQNode(nil)
	q.Enqueue(n)
	require.Panics(t, func() { q.Enqueue(n) })
}

func TestQueueRemoveNotOwnedIsNoOp(t *testing.T) {
	q1 := NewQueue()
	q2 := NewQueue()
	n := NewQNode(nil)
	q1.Enqueue(n)

	require.False(t, q2.Remove(n))
	require.Equal(t, 1, q1.Len())

	require.True(t, q1.Remove(n))
	require.Equal(t, 0, q1.Len())
	require.False(t, q1.Remove(n))
}

func TestQueueRemoveMiddleNode(t *testing.T) {
	q := NewQueue()
	a := NewQNode("A")
	b := NewQNode("B")
	c := NewQNode("C")
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	require.True(t, q.Remove(b))
	require.Equal(t, 2, q.Len())

	var walked []any
	q.Each(func(payload any) bool {
		walked = append(walked, payload)
		return true
	})
	require.Equal(t, []any{"C", "A"}, walked)
}

func TestBlockingQueueDequeueBlockingTimesOutEmpty(t *testing.T) {
	bq := NewBlockingQueue()
	start := time.Now()
	n := bq.DequeueBlocking(20 * time.Millisecond)
	require.Nil(t, n)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestBlockingQueueDequeueBlockingWakesOnEnqueue(t *testing.T) {
	bq := NewBlockingQueue()
	n := NewQNode("x")

	done := make(chan *QNode, 1)
	go func() {
		done <- bq.DequeueBlocking(time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	bq.Enqueue(n)

	select {
	case got := <-done:
		require.Same(t, n, got)
	case <-time.After(time.Second):
		t.Fatal("DequeueBlocking did not wake on enqueue")
	}
}
