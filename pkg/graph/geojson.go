package graph

import (
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidFeature is returned for features that cannot be turned into an Edge.
var ErrInvalidFeature = errors.New("graph: invalid network feature")

// ReadGeoJSON reads a FeatureCollection of LineString features into edges.
// Each feature carries the numeric properties id, source, target, cost and
// reverse_cost; length is optional and defaults to the planar length of the
// geometry.
func ReadGeoJSON(r io.Reader) ([]Edge, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}

	edges := make([]Edge, 0, len(fc.Features))
	for i, f := range fc.Features {
		e, err := featureToEdge(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		edges = append(edges, e)
	}

	log.Infof("loaded %d edges from GeoJSON", len(edges))
	return edges, nil
}

func featureToEdge(f *geojson.Feature) (Edge, error) {
	ls, ok := f.Geometry.(orb.LineString)
	if !ok {
		return Edge{}, fmt.Errorf("%w: geometry is %T, want LineString", ErrInvalidFeature, f.Geometry)
	}
	if len(ls) < 2 {
		return Edge{}, fmt.Errorf("%w: geometry has %d points", ErrInvalidFeature, len(ls))
	}

	var e Edge
	var err error
	var id, source, target float64
	if id, err = numberProp(f.Properties, "id"); err != nil {
		return Edge{}, err
	}
	if source, err = numberProp(f.Properties, "source"); err != nil {
		return Edge{}, err
	}
	if target, err = numberProp(f.Properties, "target"); err != nil {
		return Edge{}, err
	}
	if e.Cost, err = numberProp(f.Properties, "cost"); err != nil {
		return Edge{}, err
	}
	if e.ReverseCost, err = numberProp(f.Properties, "reverse_cost"); err != nil {
		return Edge{}, err
	}
	e.ID, e.Source, e.Target = int64(id), int64(source), int64(target)

	e.Length = planar.Length(ls)
	if _, ok := f.Properties["length"]; ok {
		if e.Length, err = numberProp(f.Properties, "length"); err != nil {
			return Edge{}, err
		}
	}
	e.Geometry = ls
	return e, nil
}

func numberProp(props geojson.Properties, key string) (float64, error) {
	v, ok := props[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing property %q", ErrInvalidFeature, key)
	}
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: property %q is %T, want number", ErrInvalidFeature, key, v)
	}
	return n, nil
}
