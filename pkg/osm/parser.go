// Package osm turns an OpenStreetMap PBF extract into network edges.
package osm

import (
	"context"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/sirupsen/logrus"

	"isochrone_engine/pkg/geo"
	"isochrone_engine/pkg/graph"
)

var log = logrus.WithField("module", "osm")

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges lying entirely inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Profile Profile // zero value means Driving
	BBox    BBox    // if non-zero, filter edges to this bounding box
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Speed    float64 // km/h
	Forward  bool
	Backward bool
}

// Parse reads an OSM PBF file and returns one edge per way section between
// junctions. Vertex ids are OSM node ids; costs are travel seconds under the
// profile and a non-traversable direction gets cost -1.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opt ParseOptions) ([]graph.Edge, error) {
	profile := opt.Profile
	if profile.Speeds == nil {
		profile = Driving
	}

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	// nodeUse counts how many way positions reference a node; anything
	// above one is a junction.
	nodeUse := make(map[osm.NodeID]int)
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if len(w.Nodes) < 2 {
			continue
		}

		speed, ok := profile.accessible(w.Tags)
		if !ok {
			continue
		}
		fwd, bwd := profile.directions(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			nodeUse[wn.ID]++
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Speed:    speed,
			Forward:  fwd,
			Backward: bwd,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Infof("pass 1 complete: %d %s ways, %d referenced nodes", len(ways), profile.Name, len(nodeUse))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	coords := make(map[osm.NodeID]orb.Point, len(nodeUse))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := nodeUse[n.ID]; !needed {
			continue
		}
		coords[n.ID] = orb.Point{n.Lon, n.Lat}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Infof("pass 2 complete: %d node coordinates collected", len(coords))

	return buildEdges(ways, coords, nodeUse, opt.BBox), nil
}

// buildEdges splits every way at junctions and turns each section into an
// edge. Sections touching a node without coordinates, or leaving the bbox,
// are dropped.
func buildEdges(ways []wayInfo, coords map[osm.NodeID]orb.Point, nodeUse map[osm.NodeID]int, bbox BBox) []graph.Edge {
	useBBox := !bbox.IsZero()

	var edges []graph.Edge
	var skipped, bboxFiltered int
	nextID := int64(1)

	for _, w := range ways {
		start := 0
		for i := 1; i < len(w.NodeIDs); i++ {
			last := i == len(w.NodeIDs)-1
			if !last && nodeUse[w.NodeIDs[i]] < 2 {
				continue
			}

			section := w.NodeIDs[start : i+1]
			start = i

			line := make(orb.LineString, 0, len(section))
			complete := true
			inside := true
			for _, id := range section {
				p, ok := coords[id]
				if !ok {
					complete = false
					break
				}
				if useBBox && !bbox.Contains(p[1], p[0]) {
					inside = false
				}
				line = append(line, p)
			}
			if !complete {
				skipped++
				continue
			}
			if !inside {
				bboxFiltered++
				continue
			}

			length := geo.LineLengthMeters(line)
			cost := length / (w.Speed / 3.6)

			e := graph.Edge{
				ID:          nextID,
				Source:      int64(section[0]),
				Target:      int64(section[len(section)-1]),
				Cost:        -1,
				ReverseCost: -1,
				Length:      length,
				Geometry:    line,
			}
			if w.Forward {
				e.Cost = cost
			}
			if w.Backward {
				e.ReverseCost = cost
			}
			edges = append(edges, e)
			nextID++
		}
	}

	if skipped > 0 {
		log.Warnf("skipped %d way sections due to missing node coordinates", skipped)
	}
	if bboxFiltered > 0 {
		log.Infof("filtered %d way sections outside bounding box", bboxFiltered)
	}
	log.Infof("built %d edges", len(edges))

	return edges
}
