package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isochrone_engine/pkg/graph"
)

func testEdges() []graph.Edge {
	return []graph.Edge{
		{ID: 7, Source: 10, Target: 20, Cost: 12.5, ReverseCost: 12.5, Length: 100,
			Geometry: orb.LineString{{103.800, 1.300}, {103.8005, 1.3002}, {103.801, 1.300}}},
		{ID: 8, Source: 20, Target: 30, Cost: 30, ReverseCost: -1, Length: 250,
			Geometry: orb.LineString{{103.801, 1.300}, {103.802, 1.300}}},
		{ID: 1 << 40, Source: -5, Target: 10, Cost: -1, ReverseCost: 4, Length: 33,
			Geometry: orb.LineString{{103.799, 1.300}, {103.800, 1.300}}},
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	original := testEdges()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.network.bin")

	require.NoError(t, graph.WriteBinary(path, original))

	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	// Temp file must not linger after a successful write.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestBinaryInvalidMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.network.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOT_ISOCHRNE_HEADER_BLAH_BLAH_BLAH_MORE_DATA"), 0644))

	_, err := graph.ReadBinary(path)
	assert.Error(t, err)
}

func TestBinaryTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.network.bin")
	require.NoError(t, os.WriteFile(path, []byte("ISOCHRNE"), 0644))

	_, err := graph.ReadBinary(path)
	assert.Error(t, err)
}

func TestBinaryCorruptedPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.network.bin")
	require.NoError(t, graph.WriteBinary(path, testEdges()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-16] ^= 0xFF // flip a geometry byte, CRC must catch it
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = graph.ReadBinary(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRC32 mismatch")
}
