package isochrone

import (
	"context"
	"encoding/json"
	"math"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isochrone_engine/pkg/graph"
)

// pathABC is the path A(1) - B(2) - C(3) with costs 5 and 7.
func pathABC() []graph.Edge {
	return []graph.Edge{
		{ID: 100, Source: 1, Target: 2, Cost: 5, ReverseCost: 5, Length: 5,
			Geometry: orb.LineString{{0, 0}, {5, 0}}},
		{ID: 200, Source: 2, Target: 3, Cost: 7, ReverseCost: 7, Length: 7,
			Geometry: orb.LineString{{5, 0}, {5, 7}}},
	}
}

// grid builds a side x side grid with uneven costs and some one-way streets.
func grid(side int) []graph.Edge {
	var edges []graph.Edge
	id := int64(1)
	vertex := func(x, y int) int64 { return int64(1000 + y*side + x) }
	add := func(x1, y1, x2, y2 int) {
		cost := 1 + float64(id%4)
		reverse := cost
		if id%7 == 0 {
			reverse = -1
		}
		edges = append(edges, graph.Edge{
			ID: id, Source: vertex(x1, y1), Target: vertex(x2, y2),
			Cost: cost, ReverseCost: reverse, Length: 1,
			Geometry: orb.LineString{{float64(x1), float64(y1)}, {float64(x2), float64(y2)}},
		})
		id++
	}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if x+1 < side {
				add(x, y, x+1, y)
			}
			if y+1 < side {
				add(x, y, x, y+1)
			}
		}
	}
	return edges
}

func TestCalculatePathScenario(t *testing.T) {
	c, err := New(pathABC())
	require.NoError(t, err)

	res, err := c.Calculate(context.Background(), Request{
		StartVertices: []int64{1},
		Limits:        []float64{10, 6},
	})
	require.NoError(t, err)

	require.Len(t, res.Network, 3)

	ab := res.Network[0]
	assert.Equal(t, int64(100), ab.EdgeID)
	assert.Equal(t, int64(1), ab.StartID)
	assert.Equal(t, 6.0, ab.Limit)
	assert.Equal(t, [4]float64{0, 1, 0, 5}, [4]float64{ab.StartPerc, ab.EndPerc, ab.StartCost, ab.EndCost})
	assert.Equal(t, orb.LineString{{0, 0}, {5, 0}}, ab.Geometry)

	bc1 := res.Network[1]
	assert.Equal(t, int64(200), bc1.EdgeID)
	assert.Equal(t, 6.0, bc1.Limit)
	assert.Equal(t, 0.0, bc1.StartPerc)
	assert.InDelta(t, 1.0/7, bc1.EndPerc, 1e-12)
	assert.Equal(t, 5.0, bc1.StartCost)
	assert.Equal(t, 6.0, bc1.EndCost)
	assertLineInDelta(t, orb.LineString{{5, 0}, {5, 1}}, bc1.Geometry)

	bc2 := res.Network[2]
	assert.Equal(t, int64(200), bc2.EdgeID)
	assert.Equal(t, 10.0, bc2.Limit)
	assert.Equal(t, bc1.EndPerc, bc2.StartPerc)
	assert.InDelta(t, 5.0/7, bc2.EndPerc, 1e-12)
	assert.Equal(t, 6.0, bc2.StartCost)
	assert.Equal(t, 10.0, bc2.EndCost)
	assertLineInDelta(t, orb.LineString{{5, 1}, {5, 5}}, bc2.Geometry)

	require.Len(t, res.StartPoints, 1)
	sp := res.StartPoints[0]
	assert.Equal(t, int64(1), sp.StartID)
	require.Len(t, sp.Shapes, 2)

	// Limit 6 has four cloud points: hull plus refinement.
	ring, ok := sp.Shape(6)
	require.True(t, ok)
	require.Len(t, ring, 4)
	assert.True(t, ring.Closed())
	assert.Equal(t, orb.Point{0, 0}, ring[0])
	assert.Equal(t, orb.Point{5, 0}, ring[1])
	assert.InDelta(t, 1.0, ring[2][1], 1e-9)

	// Limit 10 has only the two ends of one piece.
	ring, ok = sp.Shape(10)
	require.True(t, ok)
	require.Len(t, ring, 3)
	assert.True(t, ring.Closed())
}

func TestCalculateUnknownStartVertex(t *testing.T) {
	c, err := New(pathABC())
	require.NoError(t, err)

	res, err := c.Calculate(context.Background(), Request{
		StartVertices: []int64{42},
		Limits:        []float64{10},
	})
	require.NoError(t, err)

	require.Len(t, res.Network, 1)
	assert.Equal(t, NetworkEdge{StartID: 42, EdgeID: graph.NoEdge, Geometry: orb.LineString{}}, res.Network[0])
	require.Len(t, res.StartPoints, 1)
	assert.Equal(t, int64(42), res.StartPoints[0].StartID)
	assert.Empty(t, res.StartPoints[0].Shapes)
}

func TestCalculateKeepsRequestOrder(t *testing.T) {
	c, err := New(pathABC(), WithWorkers(3))
	require.NoError(t, err)

	starts := []int64{3, 42, 1, 2, 3}
	res, err := c.Calculate(context.Background(), Request{StartVertices: starts, Limits: []float64{4}})
	require.NoError(t, err)

	require.Len(t, res.StartPoints, len(starts))
	for i, sp := range res.StartPoints {
		assert.Equal(t, starts[i], sp.StartID)
	}

	// Network pieces are grouped by start vertex in the same order.
	var seen []int64
	for _, e := range res.Network {
		if len(seen) == 0 || seen[len(seen)-1] != e.StartID {
			seen = append(seen, e.StartID)
		}
	}
	assert.Equal(t, starts, seen)
}

func TestCalculateConcurrentMatchesSequential(t *testing.T) {
	edges := grid(12)
	starts := []int64{1000, 1005, 1030, 1077, 1143, 1000}
	req := Request{StartVertices: starts, Limits: []float64{3, 6, 9}, OnlyMinimumCover: true}

	seq, err := New(edges, WithWorkers(1))
	require.NoError(t, err)
	par, err := New(edges, WithWorkers(8))
	require.NoError(t, err)

	want, err := seq.Calculate(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		got, err := par.Calculate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// The same start vertex twice yields the same output.
	assert.Equal(t, want.StartPoints[0].Shapes, want.StartPoints[5].Shapes)
}

func TestCalculatePieceInvariants(t *testing.T) {
	c, err := New(grid(10))
	require.NoError(t, err)

	limits := []float64{2, 4.5, 8}
	res, err := c.Calculate(context.Background(), Request{StartVertices: []int64{1044}, Limits: limits})
	require.NoError(t, err)
	require.NotEmpty(t, res.Network)

	for _, e := range res.Network {
		assert.GreaterOrEqual(t, e.StartPerc, 0.0)
		assert.LessOrEqual(t, e.StartPerc, e.EndPerc)
		assert.LessOrEqual(t, e.EndPerc, 1.0)
		assert.LessOrEqual(t, math.Max(e.StartCost, e.EndCost), e.Limit, "edge %d", e.EdgeID)
		assert.Contains(t, limits, e.Limit)
		assert.GreaterOrEqual(t, len(e.Geometry), 2)
	}

	sp := res.StartPoints[0]
	for i, s := range sp.Shapes {
		assert.True(t, s.Ring.Closed())
		if i > 0 {
			assert.Less(t, sp.Shapes[i-1].Limit, s.Limit, "shapes sorted by limit")
		}
	}
}

func TestCalculateInvalidRequest(t *testing.T) {
	c, err := New(pathABC())
	require.NoError(t, err)

	_, err = c.Calculate(context.Background(), Request{StartVertices: []int64{1}})
	assert.ErrorIs(t, err, ErrNoLimits)

	_, err = c.Calculate(context.Background(), Request{StartVertices: []int64{1}, Limits: []float64{-3}})
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestCalculateNoStartVertices(t *testing.T) {
	c, err := New(pathABC())
	require.NoError(t, err)

	res, err := c.Calculate(context.Background(), Request{Limits: []float64{5}})
	require.NoError(t, err)
	assert.Empty(t, res.Network)
	assert.Empty(t, res.StartPoints)
}

func TestCalculateCanceled(t *testing.T) {
	c, err := New(grid(5))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Calculate(ctx, Request{StartVertices: []int64{1000, 1001}, Limits: []float64{5}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidEdges(t *testing.T) {
	_, err := New([]graph.Edge{{ID: 1, Source: 1, Target: 2, Cost: -1, ReverseCost: -1}})
	assert.ErrorIs(t, err, graph.ErrNoDirection)
}

type countingRefiner struct {
	calls atomic.Int32
}

func (r *countingRefiner) Refine(points []orb.Point, hull []int) orb.Ring {
	r.calls.Add(1)
	ring := make(orb.Ring, 0, len(hull)+1)
	for _, i := range hull {
		ring = append(ring, points[i])
	}
	return append(ring, points[hull[0]])
}

func TestCalculateUsesRefiner(t *testing.T) {
	r := &countingRefiner{}
	c, err := New(grid(6), WithRefiner(r), WithWorkers(2))
	require.NoError(t, err)

	res, err := c.Calculate(context.Background(), Request{
		StartVertices: []int64{1000, 1014},
		Limits:        []float64{6, 12},
	})
	require.NoError(t, err)

	shapes := 0
	for _, sp := range res.StartPoints {
		shapes += len(sp.Shapes)
	}
	assert.Equal(t, 4, shapes)
	assert.Equal(t, int32(4), r.calls.Load())
}

func TestFeatureCollection(t *testing.T) {
	c, err := New(pathABC())
	require.NoError(t, err)
	res, err := c.Calculate(context.Background(), Request{StartVertices: []int64{1}, Limits: []float64{6, 10}})
	require.NoError(t, err)

	fc := FeatureCollection(res)
	require.Len(t, fc.Features, len(res.Network)+2)

	first := fc.Features[0]
	assert.Equal(t, KindNetwork, first.Properties["kind"])
	assert.Equal(t, int64(100), first.Properties["edge_id"])
	assert.Equal(t, "LineString", first.Geometry.GeoJSONType())

	last := fc.Features[len(fc.Features)-1]
	assert.Equal(t, KindShape, last.Properties["kind"])
	assert.Equal(t, 10.0, last.Properties["limit"])
	assert.Equal(t, "Polygon", last.Geometry.GeoJSONType())

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"shape"`)
}
