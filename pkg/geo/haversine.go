// Package geo holds the planar and spherical geometry primitives used by the
// isochrone pipeline. Coordinates are orb points in (lon, lat) order.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// EquirectangularDist returns an approximate distance in meters.
// ~3x faster than Haversine and accurate to <0.1% over snapping distances.
// Use for candidate filtering and comparisons, not for edge lengths.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)/2*math.Pi/180) * math.Pi / 180
	y := (lat2 - lat1) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

// LineLengthMeters sums the haversine length of every segment of line.
func LineLengthMeters(line orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		total += Haversine(a[1], a[0], b[1], b[0])
	}
	return total
}
