// Package concave refines a convex hull into a concave boundary by digging
// hull edges towards nearby interior points (the "concaveman" algorithm).
package concave

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/rtree"
)

var log = logrus.WithField("module", "concave")

// DefaultConcavity is the concavity used when Refiner.Concavity is not positive.
const DefaultConcavity = 2.0

// Refiner digs a convex hull into the point cloud it encloses.
//
// Concavity is the relative measure of concavity: 1 gives a detailed shape,
// larger values approach the convex hull. Edges shorter than LengthThreshold
// are never split.
type Refiner struct {
	Concavity       float64
	LengthThreshold float64
}

// node is one vertex of the boundary ring; it also stands for the boundary
// segment node.p -> node.next.p in the segment index.
type node struct {
	p          orb.Point
	prev, next *node
	min, max   [2]float64
}

func (n *node) updateBBox() *node {
	p1, p2 := n.p, n.next.p
	n.min = [2]float64{math.Min(p1[0], p2[0]), math.Min(p1[1], p2[1])}
	n.max = [2]float64{math.Max(p1[0], p2[0]), math.Max(p1[1], p2[1])}
	return n
}

// insertNode links a new node for points[idx] after prev, or starts a new
// ring when prev is nil.
func insertNode(points []orb.Point, idx int, prev *node) *node {
	n := &node{p: points[idx]}
	if prev == nil {
		n.prev = n
		n.next = n
		return n
	}
	n.next = prev.next
	n.prev = prev
	prev.next.prev = n
	prev.next = n
	return n
}

// Refine returns a closed ring that starts at points[hull[0]] and visits the
// hull vertices in their given order, with interior points inserted between
// them. The result depends only on the inputs.
func (r Refiner) Refine(points []orb.Point, hull []int) orb.Ring {
	if len(hull) == 0 {
		return nil
	}
	if len(hull) < 3 {
		ring := make(orb.Ring, 0, len(hull)+1)
		for _, i := range hull {
			ring = append(ring, points[i])
		}
		return append(ring, points[hull[0]])
	}

	concavity := r.Concavity
	if concavity <= 0 {
		concavity = DefaultConcavity
	}

	onHull := make(map[int]struct{}, len(hull))
	for _, i := range hull {
		onHull[i] = struct{}{}
	}

	var tree rtree.RTreeG[int]
	for i, p := range points {
		if _, ok := onHull[i]; ok {
			continue
		}
		tree.Insert(p, p, i)
	}

	var first, last *node
	queue := make([]*node, 0, len(points))
	for _, i := range hull {
		last = insertNode(points, i, last)
		if first == nil {
			first = last
		}
		queue = append(queue, last)
	}

	var segTree rtree.RTreeG[*node]
	for _, n := range queue {
		n.updateBBox()
		segTree.Insert(n.min, n.max, n)
	}

	sqConcavity := concavity * concavity
	sqLenThreshold := r.LengthThreshold * r.LengthThreshold
	inserted := 0

	for head := 0; head < len(queue); head++ {
		n := queue[head]
		a, b := n.p, n.next.p

		sqLen := sqDist(a, b)
		if sqLen < sqLenThreshold {
			continue
		}
		maxSqLen := sqLen / sqConcavity

		idx, ok := findCandidate(&tree, &segTree, points, n.prev.p, a, b, n.next.next.p, maxSqLen)
		if !ok {
			continue
		}
		p := points[idx]
		if math.Min(sqDist(p, a), sqDist(p, b)) > maxSqLen {
			continue
		}

		segTree.Delete(n.min, n.max, n)
		added := insertNode(points, idx, n)
		tree.Delete(p, p, idx)

		queue = append(queue, n, added)
		n.updateBBox()
		added.updateBBox()
		segTree.Insert(n.min, n.max, n)
		segTree.Insert(added.min, added.max, added)
		inserted++
	}

	ring := make(orb.Ring, 0, len(hull)+inserted+1)
	n := first
	for {
		ring = append(ring, n.p)
		n = n.next
		if n == first {
			break
		}
	}
	ring = append(ring, first.p)

	log.Debugf("refined hull of %d points into %d vertices (%d candidates)", len(hull), len(ring)-1, len(points))
	return ring
}

// findCandidate returns the point closest to segment b-c that is closer to it
// than to the neighbouring segments a-b and c-d, and whose connections to b
// and c cross no boundary segment.
func findCandidate(
	tree *rtree.RTreeG[int],
	segTree *rtree.RTreeG[*node],
	points []orb.Point,
	a, b, c, d orb.Point,
	maxDist float64,
) (int, bool) {
	found := -1
	tree.Nearby(
		func(lo, hi [2]float64, _ int, item bool) float64 {
			if item {
				return sqSegDist(lo, b, c)
			}
			return sqSegBoxDist(b, c, lo, hi)
		},
		func(_, _ [2]float64, idx int, dist float64) bool {
			if dist > maxDist {
				return false
			}
			p := points[idx]
			if dist < sqSegDist(p, a, b) && dist < sqSegDist(p, c, d) &&
				noIntersections(segTree, b, p) && noIntersections(segTree, c, p) {
				found = idx
				return false
			}
			return true
		},
	)
	return found, found >= 0
}

// noIntersections reports whether segment a-b crosses no boundary segment.
func noIntersections(segTree *rtree.RTreeG[*node], a, b orb.Point) bool {
	lo := [2]float64{math.Min(a[0], b[0]), math.Min(a[1], b[1])}
	hi := [2]float64{math.Max(a[0], b[0]), math.Max(a[1], b[1])}

	ok := true
	segTree.Search(lo, hi, func(_, _ [2]float64, n *node) bool {
		if intersects(n.p, n.next.p, a, b) {
			ok = false
			return false
		}
		return true
	})
	return ok
}

// intersects reports whether segments p1-q1 and p2-q2 properly cross.
// Segments sharing an endpoint do not count.
func intersects(p1, q1, p2, q2 orb.Point) bool {
	return p1 != q2 && q1 != p2 &&
		(orient(p1, q1, p2) > 0) != (orient(p1, q1, q2) > 0) &&
		(orient(p2, q2, p1) > 0) != (orient(p2, q2, q1) > 0)
}

func orient(p, r, q orb.Point) float64 {
	return (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
}

func sqDist(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}

// sqSegDist is the squared distance from p to segment a-b.
func sqSegDist(p, a, b orb.Point) float64 {
	x, y := a[0], a[1]
	dx := b[0] - x
	dy := b[1] - y

	if dx != 0 || dy != 0 {
		t := ((p[0]-x)*dx + (p[1]-y)*dy) / (dx*dx + dy*dy)
		if t > 1 {
			x, y = b[0], b[1]
		} else if t > 0 {
			x += dx * t
			y += dy * t
		}
	}

	dx = p[0] - x
	dy = p[1] - y
	return dx*dx + dy*dy
}

// sqSegBoxDist is a lower bound of the squared distance from segment a-b
// to any point in the box.
func sqSegBoxDist(a, b orb.Point, lo, hi [2]float64) float64 {
	if inside(a, lo, hi) || inside(b, lo, hi) {
		return 0
	}
	corners := [4]orb.Point{
		{lo[0], lo[1]},
		{hi[0], lo[1]},
		{hi[0], hi[1]},
		{lo[0], hi[1]},
	}
	best := math.Inf(1)
	for i := range corners {
		d := sqSegSegDist(a, b, corners[i], corners[(i+1)%4])
		if d == 0 {
			return 0
		}
		best = math.Min(best, d)
	}
	return best
}

func inside(p orb.Point, lo, hi [2]float64) bool {
	return p[0] >= lo[0] && p[0] <= hi[0] && p[1] >= lo[1] && p[1] <= hi[1]
}

// sqSegSegDist is the squared distance between segments a-b and c-d.
func sqSegSegDist(a, b, c, d orb.Point) float64 {
	if segmentsTouch(a, b, c, d) {
		return 0
	}
	return math.Min(
		math.Min(sqSegDist(a, c, d), sqSegDist(b, c, d)),
		math.Min(sqSegDist(c, a, b), sqSegDist(d, a, b)),
	)
}

// segmentsTouch reports whether the closed segments a-b and c-d share a point.
func segmentsTouch(a, b, c, d orb.Point) bool {
	o1 := cross(a, b, c)
	o2 := cross(a, b, d)
	o3 := cross(c, d, a)
	o4 := cross(c, d, b)
	if ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) && ((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0)) {
		return true
	}
	return (o1 == 0 && onSegment(a, b, c)) ||
		(o2 == 0 && onSegment(a, b, d)) ||
		(o3 == 0 && onSegment(c, d, a)) ||
		(o4 == 0 && onSegment(c, d, b))
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// onSegment reports whether p, known to be collinear with a-b, lies on it.
func onSegment(a, b, p orb.Point) bool {
	return p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
		p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1])
}
