package routing

import (
	"math"

	"isochrone_engine/pkg/graph"
)

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap.
// Entries are ordered by (Dist, Node) so that ties resolve by vertex id.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node int32
	Dist float64
}

func (a PQItem) less(b PQItem) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Node < b.Node
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node int32, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

// PeekDist returns the smallest key, or +Inf when the heap is empty.
func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].less(h.items[smallest]) {
			smallest = left
		}
		if right < n && h.items[right].less(h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// SearchState holds the per-search output of one-to-all Dijkstra.
//
// A SearchState is owned by a single goroutine. Run overwrites it; callers
// must not keep Dist/Pred across runs. Reset restores only the entries
// touched by the previous run, so reuse costs O(touched) instead of O(V).
type SearchState struct {
	Dist    []float64 // +Inf when unreached within the cutoff
	Pred    []int32   // graph.NoVertex when there is no predecessor
	Touched []int32   // vertices labelled during the last run (for fast reset)
	PQ      MinHeap

	cutoff float64
}

// NewSearchState creates a new SearchState for a network with n vertices.
func NewSearchState(n int) *SearchState {
	dist := make([]float64, n)
	pred := make([]int32, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = graph.NoVertex
	}
	return &SearchState{
		Dist:    dist,
		Pred:    pred,
		Touched: make([]int32, 0, 1024),
		PQ:      MinHeap{items: make([]PQItem, 0, 256)},
		cutoff:  math.Inf(1),
	}
}

// Reset clears only the touched entries for fast reuse.
func (s *SearchState) Reset() {
	for _, v := range s.Touched {
		s.Dist[v] = math.Inf(1)
		s.Pred[v] = graph.NoVertex
	}
	s.Touched = s.Touched[:0]
	s.PQ.Reset()
	s.cutoff = math.Inf(1)
}

// Reached reports whether v was settled within the cutoff of the last run.
func (s *SearchState) Reached(v int32) bool {
	return s.Dist[v] <= s.cutoff
}

// Cutoff returns the cutoff of the last run.
func (s *SearchState) Cutoff() float64 {
	return s.cutoff
}

func (s *SearchState) touch(v int32, dist float64, pred int32) {
	if math.IsInf(s.Dist[v], 1) {
		s.Touched = append(s.Touched, v)
	}
	s.Dist[v] = dist
	s.Pred[v] = pred
}
