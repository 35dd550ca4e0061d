// Package isochrone computes, for a set of start vertices and ascending cost
// limits, the reachable parts of a network and a boundary polygon per limit.
package isochrone

import (
	"github.com/paulmach/orb"
)

// Request describes one isochrone computation.
type Request struct {
	// StartVertices are external vertex ids. Ids that no edge references
	// produce a placeholder network edge and no shapes.
	StartVertices []int64
	// Limits are the cost thresholds. They are deduplicated and sorted
	// before use; the largest one bounds the shortest-path search.
	Limits []float64
	// OnlyMinimumCover keeps a single direction of edges that are fully
	// reachable from both ends.
	OnlyMinimumCover bool
}

// NetworkEdge is one reachable piece of one edge.
//
// StartPerc/EndPerc are fractions of the edge's length in the edge's own
// orientation (source to target), with StartPerc <= EndPerc. StartCost and
// EndCost are the accumulated costs at those positions; for a piece walked
// from the target they decrease along the edge.
type NetworkEdge struct {
	StartID   int64
	EdgeID    int64
	Limit     float64 // the limit band this piece was assigned to
	StartPerc float64
	EndPerc   float64
	StartCost float64
	EndCost   float64
	Geometry  orb.LineString
}

// Shape is the boundary of the area reachable within Limit.
type Shape struct {
	Limit float64
	Ring  orb.Ring // closed
}

// StartPoint holds the shapes computed for one start vertex, sorted by limit.
type StartPoint struct {
	StartID int64
	Shapes  []Shape
}

// Shape returns the shape for limit, if one was built.
func (sp *StartPoint) Shape(limit float64) (orb.Ring, bool) {
	for _, s := range sp.Shapes {
		if s.Limit == limit {
			return s.Ring, true
		}
	}
	return nil, false
}

// Result is the output of one computation. Entries follow the order of the
// request's start vertices.
type Result struct {
	Network     []NetworkEdge
	StartPoints []StartPoint
}

// Refiner turns a convex hull over points into a tighter boundary.
// hull holds indices into points in hull order; the returned ring is closed.
type Refiner interface {
	Refine(points []orb.Point, hull []int) orb.Ring
}
