package graph

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "graph")

const (
	// NoVertex is the dense-id sentinel for "no vertex" (e.g. no predecessor).
	NoVertex int32 = -1
	// NoEdge is the external edge-id sentinel used by placeholder results.
	NoEdge int64 = -1
)

var (
	// ErrNoDirection is returned when an edge has neither direction traversable.
	ErrNoDirection = errors.New("graph: edge has no traversable direction")
	// ErrInvalidCost is returned when an edge carries a NaN or infinite cost.
	ErrInvalidCost = errors.New("graph: edge cost is not a finite number")
)

// Edge is one network edge as supplied by the loading layer.
// A negative cost marks the corresponding direction as not traversable.
type Edge struct {
	ID          int64
	Source      int64
	Target      int64
	Cost        float64 // source -> target
	ReverseCost float64 // target -> source
	Length      float64
	Geometry    orb.LineString // first/last point are the edge endpoints
}

// Forward reports whether the edge can be traversed from Source to Target.
func (e *Edge) Forward() bool { return e.Cost >= 0 }

// Backward reports whether the edge can be traversed from Target to Source.
func (e *Edge) Backward() bool { return e.ReverseCost >= 0 }

// Arc is one adjacency entry: the edge index in Network.Edges, the dense id
// of the vertex on the other end, and the cost in the direction of travel.
type Arc struct {
	Edge    int32
	Head    int32
	Cost    float64
	Reverse bool // true when the arc walks the edge from Target to Source
}

// Network is the remapped, read-only view of an edge collection.
// It indexes into Edges and never modifies them.
type Network struct {
	Edges []Edge
	Remap *Remap

	// Dense endpoints of Edges[i].
	Source []int32
	Target []int32

	// Adjacency in CSR form: FirstOut[v]..FirstOut[v+1] are the arcs of v.
	FirstOut []uint32
	Arcs     []Arc
}

// NumVertices returns the number of distinct vertices referenced by edges.
func (n *Network) NumVertices() int {
	return n.Remap.Len()
}

// ArcsFrom returns the outgoing arcs of dense vertex v.
func (n *Network) ArcsFrom(v int32) []Arc {
	return n.Arcs[n.FirstOut[v]:n.FirstOut[v+1]]
}
