package graph

import (
	"fmt"
	"math"
)

// Remap is a bijection between external vertex ids referenced by edges and
// the dense range [0, Len()).
type Remap struct {
	dense    map[int64]int32
	external []int64
}

// NewRemap assigns dense ids in order of first appearance, source before
// target, walking edges in slice order.
func NewRemap(edges []Edge) *Remap {
	r := &Remap{dense: make(map[int64]int32, len(edges))}
	for i := range edges {
		r.add(edges[i].Source)
		r.add(edges[i].Target)
	}
	return r
}

func (r *Remap) add(id int64) int32 {
	if idx, ok := r.dense[id]; ok {
		return idx
	}
	idx := int32(len(r.external))
	r.dense[id] = idx
	r.external = append(r.external, id)
	return idx
}

// Dense returns the dense id of an external vertex id.
func (r *Remap) Dense(id int64) (int32, bool) {
	idx, ok := r.dense[id]
	return idx, ok
}

// External returns the external id of a dense vertex id.
func (r *Remap) External(v int32) int64 {
	return r.external[v]
}

// Len returns the number of mapped vertices.
func (r *Remap) Len() int {
	return len(r.external)
}

// Build remaps the edges' vertex ids and constructs the adjacency list.
// The edges slice is kept by reference and is not modified.
func Build(edges []Edge) (*Network, error) {
	for i := range edges {
		e := &edges[i]
		if !isFinite(e.Cost) || !isFinite(e.ReverseCost) {
			return nil, fmt.Errorf("edge %d: %w", e.ID, ErrInvalidCost)
		}
		if !e.Forward() && !e.Backward() {
			return nil, fmt.Errorf("edge %d: %w", e.ID, ErrNoDirection)
		}
	}

	remap := NewRemap(edges)
	numNodes := remap.Len()

	source := make([]int32, len(edges))
	target := make([]int32, len(edges))
	for i := range edges {
		source[i], _ = remap.Dense(edges[i].Source)
		target[i], _ = remap.Dense(edges[i].Target)
	}

	// Count arcs per vertex.
	firstOut := make([]uint32, numNodes+1)
	for i := range edges {
		if edges[i].Forward() {
			firstOut[source[i]+1]++
		}
		if edges[i].Backward() {
			firstOut[target[i]+1]++
		}
	}
	// Prefix sum.
	for v := 1; v <= numNodes; v++ {
		firstOut[v] += firstOut[v-1]
	}

	// Place arcs. Edge order is preserved within each vertex's range.
	arcs := make([]Arc, firstOut[numNodes])
	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for i := range edges {
		e := &edges[i]
		if e.Forward() {
			arcs[pos[source[i]]] = Arc{Edge: int32(i), Head: target[i], Cost: e.Cost}
			pos[source[i]]++
		}
		if e.Backward() {
			arcs[pos[target[i]]] = Arc{Edge: int32(i), Head: source[i], Cost: e.ReverseCost, Reverse: true}
			pos[target[i]]++
		}
	}

	log.Debugf("built network: %d vertices, %d edges, %d arcs", numNodes, len(edges), len(arcs))

	return &Network{
		Edges:    edges,
		Remap:    remap,
		Source:   source,
		Target:   target,
		FirstOut: firstOut,
		Arcs:     arcs,
	}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
