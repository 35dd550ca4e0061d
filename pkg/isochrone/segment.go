package isochrone

import (
	"math"

	"github.com/paulmach/orb"

	"isochrone_engine/pkg/geo"
	"isochrone_engine/pkg/graph"
	"isochrone_engine/pkg/routing"
)

// extractor turns the search result of one start vertex into reachable edge
// pieces and per-limit point clouds. It is owned by one worker and reused
// across start vertices.
type extractor struct {
	net          *graph.Network
	limits       []float64 // ascending
	minimumCover bool

	edges  []NetworkEdge
	clouds [][]orb.Point // parallel to limits
}

func newExtractor(net *graph.Network, limits []float64, minimumCover bool) *extractor {
	return &extractor{
		net:          net,
		limits:       limits,
		minimumCover: minimumCover,
		clouds:       make([][]orb.Point, len(limits)),
	}
}

// reset drops the output of the previous start vertex. The backing arrays
// are reused; callers must have copied what they keep.
func (x *extractor) reset() {
	x.edges = x.edges[:0]
	for i := range x.clouds {
		x.clouds[i] = x.clouds[i][:0]
	}
}

// extract walks every edge touching the area searched from start.
func (x *extractor) extract(startID int64, start int32, s *routing.SearchState) {
	maxLimit := x.limits[len(x.limits)-1]

	for i := range x.net.Edges {
		e := &x.net.Edges[i]
		src, dst := x.net.Source[i], x.net.Target[i]

		srcReached, dstReached := s.Reached(src), s.Reached(dst)
		if !srcReached && !dstReached {
			continue
		}
		srcCost, dstCost := s.Dist[src], s.Dist[dst]

		skipForward, skipBackward := false, false
		if x.minimumCover && e.Forward() && e.Backward() && srcReached && dstReached {
			forward := srcCost + e.Cost
			backward := dstCost + e.ReverseCost
			if forward <= maxLimit && backward <= maxLimit {
				skipBackward = forward < backward
				skipForward = backward < forward
			}
		}

		// Edges at the start vertex are always walked outwards. Otherwise an
		// edge is not walked back towards the vertex it was reached from.
		if e.Forward() && srcReached && (src == start || (!skipForward && s.Pred[src] != dst)) {
			x.walk(startID, e, srcCost, e.Cost, false)
		}
		if e.Backward() && dstReached && (dst == start || (!skipBackward && s.Pred[dst] != src)) {
			x.walk(startID, e, dstCost, e.ReverseCost, true)
		}
	}
}

// walk emits the pieces of one direction of e, starting at accumulated cost
// atNode, one piece per limit band the direction crosses.
func (x *extractor) walk(startID int64, e *graph.Edge, atNode, edgeCost float64, reverse bool) {
	current := atNode
	remaining := edgeCost
	startPerc := 0.0

	for li, limit := range x.limits {
		if current >= limit {
			continue
		}

		piece := NetworkEdge{
			StartID:   startID,
			EdgeID:    e.ID,
			Limit:     limit,
			StartPerc: startPerc,
			StartCost: current,
		}

		atEnd := current + remaining
		full := atEnd < limit
		if full {
			piece.EndPerc = 1
			piece.EndCost = atEnd
		} else {
			piece.EndPerc = math.Min(1, startPerc+(limit-current)/edgeCost)
			piece.EndCost = limit
			remaining = atEnd - limit
			startPerc = piece.EndPerc
			current = limit
		}

		if reverse {
			mirror(&piece)
		}
		piece.Geometry = geo.LineSubstring(e.Geometry, piece.StartPerc, piece.EndPerc)
		x.emit(li, piece)

		// A crossing exactly at the far end consumes the edge as well.
		if full || remaining <= 0 {
			return
		}
	}
}

// mirror expresses a piece walked from the target in source-to-target terms.
func mirror(p *NetworkEdge) {
	p.StartPerc, p.EndPerc = 1-p.EndPerc, 1-p.StartPerc
	p.StartCost, p.EndCost = p.EndCost, p.StartCost
}

func (x *extractor) emit(li int, piece NetworkEdge) {
	x.edges = append(x.edges, piece)
	x.clouds[li] = append(x.clouds[li], piece.Geometry...)
}
