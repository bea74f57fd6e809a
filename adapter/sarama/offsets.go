package sarama

import (
	"sync"
)

type offsetNode struct {
	offset     int64
	mark       int64
	resolved   bool
	prev, next *offsetNode
}

// OffsetTracker computes the committable offset of one partition claim.
// Messages may finish out of order; the mark only moves past an offset
// once that offset and every lower one have been resolved.
type OffsetTracker struct {
	mu         sync.Mutex
	head, tail *offsetNode
	pending    int
	mark       int64
}

func NewOffsetTracker() *OffsetTracker {
	return &OffsetTracker{mark: -1}
}

// Track registers an in-flight offset. Offsets must be tracked in increasing order.
// The returned resolve function reports the new mark (the next offset to consume)
// and whether it advanced. Resolving twice is a no-op.
func (t *OffsetTracker) Track(offset int64) func() (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := &offsetNode{offset: offset, mark: offset + 1, prev: t.tail}
	if t.tail != nil {
		t.tail.next = n
	} else {
		t.head = n
	}

	t.tail = n
	t.pending++

	return func() (int64, bool) {
		return t.resolve(n)
	}
}

func (t *OffsetTracker) resolve(n *offsetNode) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n.resolved {
		return t.mark, false
	}

	n.resolved = true
	t.pending--

	advanced := false

	if n.prev != nil {
		// a lower offset is still in flight, it inherits our progress
		n.prev.mark = n.mark
		n.prev.next = n.next
	} else {
		t.mark = n.mark
		t.head = n.next
		advanced = true
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		t.tail = n.prev
	}

	return t.mark, advanced
}

// Pending returns the number of tracked offsets not resolved yet.
func (t *OffsetTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pending
}

// Mark returns the next offset to consume, -1 before anything was resolved.
func (t *OffsetTracker) Mark() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.mark
}
