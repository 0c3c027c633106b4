package taskcore

// HNode is an intrusive min-heap node (spec.md §3, "Intrusive heap node
// HNode"). A node carries a signed 64-bit priority key and an opaque
// payload, plus a back-pointer to the Heap that currently owns it (nil
// when the node is not linked into any heap).
//
// A node must not be inserted into two heaps at once; Insert fails if
// the node already has an owner.
type HNode struct {
	value   int64
	payload any
	owner   *Heap
	index   int // 1-based position within owner.nodes; 0 when unlinked
}

// NewHNode creates an unlinked heap node carrying payload.
func NewHNode(payload any) *HNode {
	return &HNode{payload: payload}
}

// Value returns the node's current priority key.
func (n *HNode) Value() int64 { return n.value }

// Payload returns the opaque value associated with the node.
func (n *HNode) Payload() any { return n.payload }

// Owner returns the Heap the node is currently linked into, or nil.
func (n *HNode) Owner() *Heap { return n.owner }

// UpdateHint is an optimization hint for Heap.Update: it tells the heap
// which direction the node is expected to move so it can skip the
// other direction's scan. Getting the hint wrong never corrupts the
// heap — Update always leaves the heap property intact regardless of
// which hint was supplied, since the hinted direction is tried first and
// the other direction is always checked as a fallback.
type UpdateHint int

const (
	// HintNone requests both directions be checked.
	HintNone UpdateHint = iota
	// HintExpectUp hints the key decreased (node may move toward the root).
	HintExpectUp
	// HintExpectDown hints the key increased (node may move toward the leaves).
	HintExpectDown
)

// Heap is a bounded, array-backed, intrusive min-heap of *HNode ordered
// by HNode.Value. It is NOT safe for concurrent use: per spec.md §5,
// each TaskThread's timer heap is owned exclusively by that thread, and
// the shared IdleTaskThread heap is protected by an external mutex —
// Heap itself carries no lock.
type Heap struct {
	nodes []*HNode // 1-indexed; nodes[0] is an unused sentinel slot
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{nodes: make([]*HNode, 1)}
}

// Len returns the number of nodes currently in the heap.
func (h *Heap) Len() int { return len(h.nodes) - 1 }

// Insert places node into the heap with the given priority key. It
// fails (returns false) if node is already owned by some heap.
func (h *Heap) Insert(n *HNode, value int64) bool {
	if n == nil || n.owner != nil {
		return false
	}
	n.value = value
	n.owner = h
	h.nodes = append(h.nodes, n)
	n.index = len(h.nodes) - 1
	h.siftUp(n.index)
	return true
}

// ExtractMin removes and returns the minimum-keyed node, or nil if the
// heap is empty.
func (h *Heap) ExtractMin() *HNode {
	if len(h.nodes) <= 1 {
		return nil
	}
	min := h.nodes[1]
	last := len(h.nodes) - 1
	h.swap(1, last)
	h.nodes = h.nodes[:last]
	if len(h.nodes) > 1 {
		h.siftDown(1)
	}
	min.owner = nil
	min.index = 0
	return min
}

// Remove unlinks node from the heap, restoring the heap property. It is
// a no-op (returns false) if node is not owned by this heap — per
// spec.md §9's Open Question, removing a node not owned by *this* heap
// never mutates length or structure.
func (h *Heap) Remove(n *HNode) bool {
	if n == nil || n.owner != h {
		return false
	}
	idx := n.index
	last := len(h.nodes) - 1
	if idx != last {
		h.swap(idx, last)
	}
	h.nodes = h.nodes[:last]
	n.owner = nil
	n.index = 0
	if idx <= last-1 && idx >= 1 {
		// The node that took idx's place may violate the heap property
		// in either direction, since the caller does not know its
		// relative priority (spec.md §4.A).
		h.siftUp(idx)
		h.siftDown(idx)
	}
	return true
}

// Update changes node's priority key and restores the heap property.
// hint is purely an optimization (see UpdateHint); it never affects
// correctness. Fails (returns false) if node is not owned by this heap.
func (h *Heap) Update(n *HNode, newValue int64, hint UpdateHint) bool {
	if n == nil || n.owner != h {
		return false
	}
	n.value = newValue
	switch hint {
	case HintExpectDown:
		if !h.siftDown(n.index) {
			h.siftUp(n.index)
		}
	default: // HintNone, HintExpectUp
		if !h.siftUp(n.index) {
			h.siftDown(n.index)
		}
	}
	return true
}

// PeekMin returns the minimum-keyed node without removing it, or nil if
// the heap is empty.
func (h *Heap) PeekMin() *HNode {
	if len(h.nodes) <= 1 {
		return nil
	}
	return h.nodes[1]
}

func (h *Heap) swap(i, j int) {
	h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i]
	h.nodes[i].index = i
	h.nodes[j].index = j
}

// siftUp moves the node at index i toward the root while it is smaller
// than its parent. Returns true if any swap occurred.
func (h *Heap) siftUp(i int) bool {
	moved := false
	for i > 1 {
		parent := i / 2
		if h.nodes[parent].value <= h.nodes[i].value {
			break
		}
		h.swap(parent, i)
		i = parent
		moved = true
	}
	return moved
}

// siftDown moves the node at index i toward the leaves while it is
// larger than either child. Returns true if any swap occurred.
func (h *Heap) siftDown(i int) bool {
	moved := false
	n := len(h.nodes) - 1
	for {
		left, right := 2*i, 2*i+1
		smallest := i
		if left <= n && h.nodes[left].value < h.nodes[smallest].value {
			smallest = left
		}
		if right <= n && h.nodes[right].value < h.nodes[smallest].value {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.swap(i, smallest)
		i = smallest
		moved = true
	}
	return moved
}
