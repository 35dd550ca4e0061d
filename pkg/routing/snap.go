package routing

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"isochrone_engine/pkg/geo"
	"isochrone_engine/pkg/graph"
)

// DefaultMaxSnapDistMeters is the snapping radius used when none is configured.
const DefaultMaxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any vertex.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a network vertex.
type SnapResult struct {
	Vertex int64     // external vertex id
	Point  orb.Point // vertex position (lon, lat)
	Dist   float64   // distance in meters from query point to the vertex
}

// Snapper provides nearest-vertex snapping on an R-tree of vertex positions.
// Vertex positions are the first/last geometry points of the edges, in
// (lon, lat) order.
type Snapper struct {
	tr            rtree.RTreeG[int32]
	pos           []orb.Point
	n             *graph.Network
	maxDistMeters float64
}

// NewSnapper indexes every vertex of n that has a known position.
func NewSnapper(n *graph.Network, maxDistMeters float64) *Snapper {
	if maxDistMeters <= 0 {
		maxDistMeters = DefaultMaxSnapDistMeters
	}
	s := &Snapper{
		pos:           make([]orb.Point, n.NumVertices()),
		n:             n,
		maxDistMeters: maxDistMeters,
	}

	known := make([]bool, n.NumVertices())
	for i := range n.Edges {
		geom := n.Edges[i].Geometry
		if len(geom) == 0 {
			continue
		}
		for _, end := range [2]struct {
			v int32
			p orb.Point
		}{{n.Source[i], geom[0]}, {n.Target[i], geom[len(geom)-1]}} {
			if known[end.v] {
				continue
			}
			known[end.v] = true
			s.pos[end.v] = end.p
			s.tr.Insert([2]float64{end.p[0], end.p[1]}, [2]float64{end.p[0], end.p[1]}, end.v)
		}
	}

	log.Debugf("snapper indexed %d vertices", s.tr.Len())
	return s
}

// Snap finds the network vertex nearest to (lat, lng).
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	target := [2]float64{lng, lat}

	found := false
	var best int32
	s.tr.Nearby(
		rtree.BoxDist[float64, int32](target, target, nil),
		func(_, _ [2]float64, v int32, _ float64) bool {
			best = v
			found = true
			return false
		},
	)
	if !found {
		return SnapResult{}, ErrPointTooFar
	}

	p := s.pos[best]
	dist := geo.EquirectangularDist(lat, lng, p[1], p[0])
	if dist > s.maxDistMeters {
		return SnapResult{}, ErrPointTooFar
	}

	return SnapResult{
		Vertex: s.n.Remap.External(best),
		Point:  p,
		Dist:   dist,
	}, nil
}
