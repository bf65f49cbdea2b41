package qss

import (
	"container/heap"
	"fmt"
)

// Handle is an opaque reference to an entry in an EventQueue, returned by
// Add and consumed by Shift and Erase. A Handle remains valid (keeps
// pointing at the same Event) across any number of Shift calls; it is
// invalidated by Erase or by the entry being popped.
type Handle struct {
	key   SuperdenseTime
	seq   uint64
	event Event
	index int // current position in the heap slice; -1 once removed
}

// heapSlice implements heap.Interface over *Handle, ordering by
// (key, seq) so that entries with an equal SuperdenseTime key drain in
// FIFO (insertion) order — the stable tiebreak spec §4.1 requires for
// deterministic simultaneous-batch dispatch.
type heapSlice []*Handle

func (h heapSlice) Len() int { return len(h) }

func (h heapSlice) Less(i, j int) bool {
	c := h[i].key.Compare(h[j].key)
	if c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}

func (h heapSlice) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *heapSlice) Push(x any) {
	entry := x.(*Handle)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *heapSlice) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// EventQueue is the superdense-time-ordered priority multimap described
// in spec §4.1: add/shift/pop are O(log n), handles stay valid across
// Shift, and entries sharing a key drain together for simultaneous-
// trigger dispatch.
//
// EventQueue is not safe for concurrent use; per the kernel's single-
// threaded execution model (§5), every EventQueue belongs to exactly one
// Simulation, accessed from exactly one goroutine.
type EventQueue struct {
	heap     heapSlice
	keyCount map[SuperdenseTime]int // count of live entries per key, for O(1) Simultaneous
	nextSeq  uint64
}

// NewEventQueue returns an empty EventQueue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		keyCount: make(map[SuperdenseTime]int),
	}
}

// Len returns the number of entries currently queued.
func (q *EventQueue) Len() int {
	return len(q.heap)
}

// Add inserts event at time, returning a Handle for later Shift/Erase.
func (q *EventQueue) Add(t SuperdenseTime, event Event) *Handle {
	entry := &Handle{key: t, seq: q.nextSeq, event: event}
	q.nextSeq++
	heap.Push(&q.heap, entry)
	q.keyCount[t]++
	return entry
}

// Shift re-keys the entry referenced by h to newTime, preserving h's
// validity. Shifting an already-removed handle panics: that is a
// programmer invariant violation (spec §7), not a recoverable case.
func (q *EventQueue) Shift(newTime SuperdenseTime, h *Handle) {
	if h == nil || h.index < 0 {
		panic("qss: Shift of a removed or nil queue handle")
	}
	q.keyCount[h.key]--
	if q.keyCount[h.key] == 0 {
		delete(q.keyCount, h.key)
	}
	h.key = newTime
	heap.Fix(&q.heap, h.index)
	q.keyCount[newTime]++
}

// Erase removes the entry referenced by h. Erasing an already-removed
// handle panics.
func (q *EventQueue) Erase(h *Handle) {
	if h == nil || h.index < 0 {
		panic("qss: Erase of a removed or nil queue handle")
	}
	q.keyCount[h.key]--
	if q.keyCount[h.key] == 0 {
		delete(q.keyCount, h.key)
	}
	heap.Remove(&q.heap, h.index)
}

// Top returns the key and Event of the minimum entry. It panics if the
// queue is empty; callers must check Len first.
func (q *EventQueue) Top() (SuperdenseTime, Event) {
	if len(q.heap) == 0 {
		panic("qss: Top of empty queue")
	}
	top := q.heap[0]
	return top.key, top.event
}

// TopTime returns the key of the minimum entry, or a zero SuperdenseTime
// if the queue is empty.
func (q *EventQueue) TopTime() SuperdenseTime {
	if len(q.heap) == 0 {
		return SuperdenseTime{}
	}
	return q.heap[0].key
}

// Pop removes and returns the minimum entry's key and Event.
func (q *EventQueue) Pop() (SuperdenseTime, Event) {
	if len(q.heap) == 0 {
		panic("qss: Pop of empty queue")
	}
	top := q.heap[0]
	q.keyCount[top.key]--
	if q.keyCount[top.key] == 0 {
		delete(q.keyCount, top.key)
	}
	heap.Pop(&q.heap)
	return top.key, top.event
}

// Simultaneous reports whether at least one other entry shares the top
// entry's key.
func (q *EventQueue) Simultaneous() bool {
	if len(q.heap) == 0 {
		return false
	}
	return q.keyCount[q.heap[0].key] > 1
}

// Drain pops every entry sharing the top key, in FIFO insertion order,
// and returns that key with the popped events. It is the queue-level
// primitive behind the dispatcher's simultaneous-trigger batching (spec
// §4.5); calling it on an empty queue returns the zero key and nil.
func (q *EventQueue) Drain() (SuperdenseTime, []Event) {
	if len(q.heap) == 0 {
		return SuperdenseTime{}, nil
	}
	key := q.heap[0].key
	var batch []Event
	for len(q.heap) > 0 && q.heap[0].key.Equal(key) {
		_, ev := q.Pop()
		batch = append(batch, ev)
	}
	return key, batch
}

// String renders the queue size, for diagnostics.
func (q *EventQueue) String() string {
	return fmt.Sprintf("EventQueue(len=%d)", len(q.heap))
}
