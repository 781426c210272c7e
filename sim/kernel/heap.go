package kernel

import "container/heap"

// eventKind discriminates the two event types that drive a replication.
type eventKind int

const (
	// evStreamArrival: an external arrival stream delivers its next
	// customer and schedules its successor.
	evStreamArrival eventKind = iota
	// evCompletion: a customer finishes service at a station.
	evCompletion
)

// event is one scheduled state change. seq is a monotonically increasing
// counter used as the tie-breaker for simultaneous events, keeping the
// execution order deterministic.
type event struct {
	time float64
	seq  int64
	kind eventKind
	// stream index for evStreamArrival, station index for evCompletion
	target int
}

// eventHeap is a priority queue over events with deterministic ordering.
// Ordering: time → sequence number.
type eventHeap struct {
	events []event
}

func newEventHeap() *eventHeap {
	h := &eventHeap{events: make([]event, 0)}
	heap.Init(h)
	return h
}

func (h *eventHeap) Len() int { return len(h.events) }

// Less implements heap.Interface with deterministic ordering.
func (h *eventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.time != ej.time {
		return ei.time < ej.time
	}
	return ei.seq < ej.seq
}

func (h *eventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

func (h *eventHeap) Push(x interface{}) {
	h.events = append(h.events, x.(event))
}

func (h *eventHeap) Pop() interface{} {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[0 : n-1]
	return item
}

// schedule adds an event to the heap.
func (h *eventHeap) schedule(e event) {
	heap.Push(h, e)
}

// popNext removes and returns the next event; ok is false when empty.
func (h *eventHeap) popNext() (event, bool) {
	if h.Len() == 0 {
		return event{}, false
	}
	return heap.Pop(h).(event), true
}
