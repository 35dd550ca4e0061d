package isochrone

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds written to the "kind" property.
const (
	KindNetwork = "network"
	KindShape   = "shape"
)

// FeatureCollection renders a result as GeoJSON: one LineString feature per
// network piece followed by one Polygon feature per shape.
func FeatureCollection(r *Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, e := range r.Network {
		f := geojson.NewFeature(e.Geometry)
		f.Properties = geojson.Properties{
			"kind":       KindNetwork,
			"start_id":   e.StartID,
			"edge_id":    e.EdgeID,
			"limit":      e.Limit,
			"start_perc": e.StartPerc,
			"end_perc":   e.EndPerc,
			"start_cost": e.StartCost,
			"end_cost":   e.EndCost,
		}
		fc.Append(f)
	}

	for _, sp := range r.StartPoints {
		for _, s := range sp.Shapes {
			f := geojson.NewFeature(orb.Polygon{s.Ring})
			f.Properties = geojson.Properties{
				"kind":     KindShape,
				"start_id": sp.StartID,
				"limit":    s.Limit,
			}
			fc.Append(f)
		}
	}

	return fc
}
