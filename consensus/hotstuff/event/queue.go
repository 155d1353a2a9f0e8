// Package event implements the simulation's clock and priority event
// queue (spec.md §4.1): a min-heap over (time, seq) lexicographic order,
// seq being the sole source of determinism for events scheduled at the
// same simulated time. Grounded on container/heap, the same primitive
// the corpus's own event-loop timer heap
// (joeycumines/go-utilpkg/eventloop) layers a richer scheduler on top
// of; for a single-threaded deterministic min-heap this small, no
// third-party priority-queue library in the pack improves on the
// standard library.
package event

import (
	"container/heap"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
)

// Kind distinguishes the two event shapes the scheduler carries.
type Kind uint8

const (
	// Deliver is a network message arriving at Target.
	Deliver Kind = iota
	// Timeout is a Pacemaker timer firing for Target at View.
	Timeout
)

// Item is one scheduled occurrence: a message delivery or a timer fire.
// Payload carries the concrete data (an envelope, for Deliver) that the
// Driver dispatches to the right handler; the event package itself is
// agnostic to it.
type Item struct {
	Time    int64 // simulated milliseconds
	Seq     uint64
	Kind    Kind
	Target  model.ReplicaId
	View    model.ViewNumber // meaningful for Kind == Timeout; used by Cancel
	Payload interface{}
}

// innerHeap implements container/heap.Interface ordering items by
// (Time, Seq) ascending - the total order that makes the scheduler
// deterministic even across equal-time events.
type innerHeap []*Item

func (h innerHeap) Len() int { return len(h) }
func (h innerHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}
func (h innerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *innerHeap) Push(x interface{}) {
	*h = append(*h, x.(*Item))
}
func (h *innerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is the Driver-owned priority queue of pending deliveries and
// timers. Not safe for concurrent use - the simulation is single
// threaded by design (spec.md §5).
type Queue struct {
	heap    innerHeap
	nextSeq uint64
}

// NewQueue returns an empty event queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// Push schedules item, assigning it the next monotonic insertion
// sequence number. The caller-supplied Seq (if any) is overwritten -
// Queue is the sole owner of sequence assignment so that insertion
// order is always the true tie-breaker.
func (q *Queue) Push(item *Item) {
	q.nextSeq++
	item.Seq = q.nextSeq
	heap.Push(&q.heap, item)
}

// Pop removes and returns the earliest-ordered item, or nil if the
// queue is empty.
func (q *Queue) Pop() *Item {
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Item)
}

// Len reports the number of pending items.
func (q *Queue) Len() int {
	return q.heap.Len()
}

// Cancel removes every item matching predicate, used to drop obsolete
// Pacemaker timers on view advance (spec.md §4.1, §5). Timers that
// survive cancellation (the predicate did not match them) must be
// handled as no-ops by the receiver (spec.md §5).
func (q *Queue) Cancel(predicate func(*Item) bool) {
	kept := q.heap[:0]
	for _, it := range q.heap {
		if predicate(it) {
			continue
		}
		kept = append(kept, it)
	}
	q.heap = kept
	heap.Init(&q.heap)
}
