package taskcore

import (
	"sync"
	"time"
)

// QNode is an intrusive queue node (spec.md §3, "Intrusive node QNode").
// A node is linked into at most one Queue at a time; owner == nil iff
// the node is unlinked.
type QNode struct {
	next, prev *QNode
	owner      *Queue
	payload    any
}

// NewQNode creates an unlinked node carrying payload.
func NewQNode(payload any) *QNode {
	return &QNode{payload: payload}
}

// Payload returns the opaque value associated with the node.
func (n *QNode) Payload() any { return n.payload }

// Owner returns the Queue the node is currently linked into, or nil.
func (n *QNode) Owner() *Queue { return n.owner }

// Queue is a doubly-linked FIFO list built around a self-looping
// sentinel (spec.md §4.B). Enqueue links at the head; Dequeue unlinks
// from the tail. Remove is O(1) for a node already known to be linked.
//
// Queue itself carries no lock and is not safe for concurrent use
// without external synchronization; BlockingQueue below guards all three
// operations with a single mutex and adds a condition variable for
// blocking consumers.
type Queue struct {
	sentinel QNode
	length   int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.sentinel.next = &q.sentinel
	q.sentinel.prev = &q.sentinel
	return q
}

// Len returns the number of linked nodes.
func (q *Queue) Len() int { return q.length }

// Enqueue links node at the head of the queue. Linking a node that is
// already owned by some queue is the double-link invariant violation
// spec.md §7 names as a programmer error: it aborts the process rather
// than silently corrupting the list.
func (q *Queue) Enqueue(n *QNode) {
	if n.owner != nil {
		invariantViolation("enqueue of a node already linked into a queue")
	}
	n.owner = q
	head := q.sentinel.next
	n.next = head
	n.prev = &q.sentinel
	head.prev = n
	q.sentinel.next = n
	q.length++
}

// Dequeue unlinks and returns the node at the tail — the oldest linked
// node, giving FIFO order — or nil if the queue is empty.
func (q *Queue) Dequeue() *QNode {
	tail := q.sentinel.prev
	if tail == &q.sentinel {
		return nil
	}
	q.unlink(tail)
	return tail
}

// Remove unlinks node from the queue in O(1). Per spec.md §9's Open
// Question, this is a documented no-op (returns false, does not touch
// length) when node is not linked into *this* queue — callers such as
// TaskThread's coalescing step (spec.md §4.E) rely on being able to
// call Remove speculatively.
func (q *Queue) Remove(n *QNode) bool {
	if n == nil || n.owner != q {
		return false
	}
	q.unlink(n)
	return true
}

func (q *Queue) unlink(n *QNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
	n.owner = nil
	q.length--
}

// Each walks the queue head-to-tail, i.e. most-recently-enqueued first,
// calling fn with each node's payload until fn returns false or the
// queue is exhausted. This gives the order the literal S2 scenario in
// spec.md §8 fixes: enqueuing A, B, C in that order and then iterating
// yields C, B, A.
func (q *Queue) Each(fn func(payload any) bool) {
	for n := q.sentinel.next; n != &q.sentinel; n = n.next {
		if !fn(n.payload) {
			return
		}
	}
}

// BlockingQueue adds a condition variable to Queue, providing a
// timed-wait dequeue for worker threads (spec.md §4.B).
type BlockingQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
	q    *Queue
}

// NewBlockingQueue returns an empty blocking queue.
func NewBlockingQueue() *BlockingQueue {
	bq := &BlockingQueue{q: NewQueue()}
	bq.cond = sync.NewCond(&bq.mu)
	return bq
}

// Enqueue links node at the head and signals the condition variable
// exactly once after releasing the lock (spec.md §4.B).
func (bq *BlockingQueue) Enqueue(n *QNode) {
	bq.mu.Lock()
	bq.q.Enqueue(n)
	bq.mu.Unlock()
	bq.cond.Signal()
}

// Dequeue unlinks and returns the tail node without blocking, or nil if
// the queue is empty.
func (bq *BlockingQueue) Dequeue() *QNode {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	return bq.q.Dequeue()
}

// Remove unlinks node in O(1); a no-op if node is not linked into this
// queue.
func (bq *BlockingQueue) Remove(n *QNode) bool {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	return bq.q.Remove(n)
}

// Len returns the number of currently linked nodes.
func (bq *BlockingQueue) Len() int {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	return bq.q.Len()
}

// Each walks the queue head-to-tail under the lock.
func (bq *BlockingQueue) Each(fn func(payload any) bool) {
	bq.mu.Lock()
	defer bq.mu.Unlock()
	bq.q.Each(fn)
}

// DequeueBlocking dequeues a node, waiting up to timeout if the queue
// is currently empty. On wake it attempts exactly one dequeue and
// returns nil if the queue is still empty — whether woken by a genuine
// enqueue, a spurious wakeup, or the timeout (spec.md §4.B).
func (bq *BlockingQueue) DequeueBlocking(timeout time.Duration) *QNode {
	bq.mu.Lock()
	defer bq.mu.Unlock()

	if bq.q.Len() == 0 {
		woken := make(chan struct{})
		timer := time.AfterFunc(timeout, func() {
			bq.mu.Lock()
			defer bq.mu.Unlock()
			select {
			case <-woken:
			default:
				bq.cond.Broadcast()
			}
		})
		defer func() {
			close(woken)
			timer.Stop()
		}()
		bq.cond.Wait()
	}
	return bq.q.Dequeue()
}
