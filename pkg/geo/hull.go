package geo

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"
)

// MinHullPoints is the smallest point cloud ConvexHull accepts.
const MinHullPoints = 4

// ErrTooFewPoints is returned by ConvexHull for fewer than MinHullPoints points.
var ErrTooFewPoints = errors.New("geo: convex hull needs at least 4 points")

// Hull is a convex hull over a point cloud.
type Hull struct {
	// Ring is closed (last point equals first) and counter-clockwise.
	Ring orb.Ring
	// Indices are positions in the input slice of the distinct ring
	// vertices, in ring order. len(Indices) == len(Ring)-1.
	Indices []int
}

// ConvexHull computes the convex hull of points with Andrew's monotone chain.
// Collinear points on the boundary are dropped. Equal points keep their input
// order, so the result only depends on the input.
func ConvexHull(points []orb.Point) (Hull, error) {
	if len(points) < MinHullPoints {
		return Hull{}, ErrTooFewPoints
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := points[order[a]], points[order[b]]
		if pa[0] != pb[0] {
			return pa[0] < pb[0]
		}
		return pa[1] < pb[1]
	})

	// chain holds indices into points; the upper chain reuses the last
	// lower point as its first element.
	chain := make([]int, 0, 2*len(points))
	for _, i := range order {
		for len(chain) >= 2 && cross(points[chain[len(chain)-2]], points[chain[len(chain)-1]], points[i]) <= 0 {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, i)
	}
	lower := len(chain) + 1
	for k := len(order) - 2; k >= 0; k-- {
		i := order[k]
		for len(chain) >= lower && cross(points[chain[len(chain)-2]], points[chain[len(chain)-1]], points[i]) <= 0 {
			chain = chain[:len(chain)-1]
		}
		chain = append(chain, i)
	}

	// chain now ends with order[0] again; drop it to get distinct vertices.
	indices := chain[:len(chain)-1]

	ring := make(orb.Ring, 0, len(indices)+1)
	for _, i := range indices {
		ring = append(ring, points[i])
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}

	return Hull{Ring: ring, Indices: indices}, nil
}

// cross returns the z component of (a-o) x (b-o). Positive means a
// counter-clockwise turn o -> a -> b.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
