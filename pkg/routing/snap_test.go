package routing

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isochrone_engine/pkg/graph"
)

func buildSnapNetwork(t *testing.T) *graph.Network {
	t.Helper()
	// Three vertices along a street in Singapore, roughly 110m apart.
	edges := []graph.Edge{
		{ID: 1, Source: 1, Target: 2, Cost: 1, ReverseCost: 1,
			Geometry: orb.LineString{{103.8500, 1.3000}, {103.8510, 1.3000}}},
		{ID: 2, Source: 2, Target: 3, Cost: 1, ReverseCost: 1,
			Geometry: orb.LineString{{103.8510, 1.3000}, {103.8515, 1.3005}, {103.8520, 1.3000}}},
	}
	n, err := graph.Build(edges)
	require.NoError(t, err)
	return n
}

func TestSnapNearestVertex(t *testing.T) {
	s := NewSnapper(buildSnapNetwork(t), 0)

	res, err := s.Snap(1.3001, 103.8509)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Vertex)
	assert.Equal(t, orb.Point{103.8510, 1.3000}, res.Point)
	assert.InDelta(t, 15.7, res.Dist, 1.0)

	res, err = s.Snap(1.3000, 103.8521)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Vertex)
}

func TestSnapIgnoresInteriorShapePoints(t *testing.T) {
	s := NewSnapper(buildSnapNetwork(t), 0)

	// Right on top of the middle shape point of edge 2; the vertex is 2 or 3.
	res, err := s.Snap(1.3005, 103.8515)
	require.NoError(t, err)
	assert.Contains(t, []int64{2, 3}, res.Vertex)
}

func TestSnapTooFar(t *testing.T) {
	s := NewSnapper(buildSnapNetwork(t), 100)

	_, err := s.Snap(1.3100, 103.8500)
	assert.ErrorIs(t, err, ErrPointTooFar)
}

func TestSnapEmptyNetwork(t *testing.T) {
	n, err := graph.Build(nil)
	require.NoError(t, err)

	_, err = NewSnapper(n, 0).Snap(1.3, 103.85)
	assert.ErrorIs(t, err, ErrPointTooFar)
}
