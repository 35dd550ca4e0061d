package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"github.com/paulmach/orb"
)

const (
	magicBytes = "ISOCHRNE"
	version    = uint32(1)
	maxEdges   = 50_000_000
	maxPoints  = 500_000_000
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	NumEdges  uint32
	NumPoints uint32 // total geometry points over all edges
}

// WriteBinary serializes an edge collection to a binary snapshot file.
// Uses unsafe.Slice for fast zero-copy I/O.
func WriteBinary(path string, edges []Edge) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	numEdges := len(edges)
	if numEdges > maxEdges {
		return fmt.Errorf("edge count %d exceeds limit %d", numEdges, maxEdges)
	}

	// Flatten into columns.
	ids := make([]int64, numEdges)
	sources := make([]int64, numEdges)
	targets := make([]int64, numEdges)
	costs := make([]float64, numEdges)
	reverseCosts := make([]float64, numEdges)
	lengths := make([]float64, numEdges)
	geoFirstOut := make([]uint32, numEdges+1)
	var geoX, geoY []float64

	for i := range edges {
		e := &edges[i]
		ids[i] = e.ID
		sources[i] = e.Source
		targets[i] = e.Target
		costs[i] = e.Cost
		reverseCosts[i] = e.ReverseCost
		lengths[i] = e.Length
		geoFirstOut[i] = uint32(len(geoX))
		for _, p := range e.Geometry {
			geoX = append(geoX, p[0])
			geoY = append(geoY, p[1])
		}
	}
	geoFirstOut[numEdges] = uint32(len(geoX))

	// Write header.
	hdr := fileHeader{
		Version:   version,
		NumEdges:  uint32(numEdges),
		NumPoints: uint32(len(geoX)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Edge attributes.
	if err := writeInt64Slice(w, ids); err != nil {
		return fmt.Errorf("write IDs: %w", err)
	}
	if err := writeInt64Slice(w, sources); err != nil {
		return fmt.Errorf("write Sources: %w", err)
	}
	if err := writeInt64Slice(w, targets); err != nil {
		return fmt.Errorf("write Targets: %w", err)
	}
	if err := writeFloat64Slice(w, costs); err != nil {
		return fmt.Errorf("write Costs: %w", err)
	}
	if err := writeFloat64Slice(w, reverseCosts); err != nil {
		return fmt.Errorf("write ReverseCosts: %w", err)
	}
	if err := writeFloat64Slice(w, lengths); err != nil {
		return fmt.Errorf("write Lengths: %w", err)
	}

	// Geometry.
	if err := writeUint32Slice(w, geoFirstOut); err != nil {
		return fmt.Errorf("write GeoFirstOut: %w", err)
	}
	if err := writeFloat64Slice(w, geoX); err != nil {
		return fmt.Errorf("write GeoX: %w", err)
	}
	if err := writeFloat64Slice(w, geoY); err != nil {
		return fmt.Errorf("write GeoY: %w", err)
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	log.Debugf("wrote %d edges (%d geometry points) to %s", numEdges, len(geoX), path)
	return nil
}

// ReadBinary deserializes an edge collection written by WriteBinary.
func ReadBinary(path string) ([]Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	// Read and validate header.
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}
	if hdr.NumPoints > maxPoints {
		return nil, fmt.Errorf("NumPoints %d exceeds limit %d", hdr.NumPoints, maxPoints)
	}

	numEdges := int(hdr.NumEdges)
	numPoints := int(hdr.NumPoints)

	ids, err := readInt64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read IDs: %w", err)
	}
	sources, err := readInt64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read Sources: %w", err)
	}
	targets, err := readInt64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read Targets: %w", err)
	}
	costs, err := readFloat64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read Costs: %w", err)
	}
	reverseCosts, err := readFloat64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read ReverseCosts: %w", err)
	}
	lengths, err := readFloat64Slice(r, numEdges)
	if err != nil {
		return nil, fmt.Errorf("read Lengths: %w", err)
	}
	geoFirstOut, err := readUint32Slice(r, numEdges+1)
	if err != nil {
		return nil, fmt.Errorf("read GeoFirstOut: %w", err)
	}
	geoX, err := readFloat64Slice(r, numPoints)
	if err != nil {
		return nil, fmt.Errorf("read GeoX: %w", err)
	}
	geoY, err := readFloat64Slice(r, numPoints)
	if err != nil {
		return nil, fmt.Errorf("read GeoY: %w", err)
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateOffsets(geoFirstOut, uint32(numEdges), uint32(numPoints)); err != nil {
		return nil, fmt.Errorf("geometry offsets invalid: %w", err)
	}

	edges := make([]Edge, numEdges)
	for i := range edges {
		start, end := geoFirstOut[i], geoFirstOut[i+1]
		geom := make(orb.LineString, end-start)
		for k := start; k < end; k++ {
			geom[k-start] = orb.Point{geoX[k], geoY[k]}
		}
		edges[i] = Edge{
			ID:          ids[i],
			Source:      sources[i],
			Target:      targets[i],
			Cost:        costs[i],
			ReverseCost: reverseCosts[i],
			Length:      lengths[i],
			Geometry:    geom,
		}
	}

	log.Infof("loaded %d edges (%d geometry points) from %s", numEdges, numPoints, path)
	return edges, nil
}

// validateOffsets checks the CSR-style geometry offset invariants.
func validateOffsets(firstOut []uint32, numEdges, numPoints uint32) error {
	if uint32(len(firstOut)) != numEdges+1 {
		return fmt.Errorf("GeoFirstOut length %d != NumEdges+1 %d", len(firstOut), numEdges+1)
	}
	if firstOut[0] != 0 {
		return fmt.Errorf("GeoFirstOut[0]=%d, want 0", firstOut[0])
	}
	if firstOut[numEdges] != numPoints {
		return fmt.Errorf("GeoFirstOut[NumEdges]=%d != NumPoints %d", firstOut[numEdges], numPoints)
	}
	for i := uint32(1); i <= numEdges; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("GeoFirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt64Slice(w io.Writer, s []int64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt64Slice(r io.Reader, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
