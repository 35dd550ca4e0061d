package api

import "github.com/paulmach/orb"

// IsochroneRequest is the JSON body for POST /api/v1/isochrone.
// Start locations are given as coordinates (snapped to the nearest vertex),
// as network vertex ids, or both; coordinates come first in the output.
type IsochroneRequest struct {
	Starts           []LatLngJSON `json:"starts,omitempty"`
	StartVertices    []int64      `json:"start_vertices,omitempty"`
	Limits           []float64    `json:"limits"`
	OnlyMinimumCover bool         `json:"only_minimum_cover"`
	Format           string       `json:"format,omitempty"` // "json" (default) or "geojson"
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsochroneResponse is the JSON response for a successful isochrone query.
type IsochroneResponse struct {
	Network     []NetworkEdgeJSON `json:"network"`
	StartPoints []StartPointJSON  `json:"start_points"`
}

// NetworkEdgeJSON is one reachable piece of an edge. Geometry is [lng, lat] pairs.
type NetworkEdgeJSON struct {
	StartID   int64          `json:"start_id"`
	EdgeID    int64          `json:"edge_id"`
	Limit     float64        `json:"limit"`
	StartPerc float64        `json:"start_perc"`
	EndPerc   float64        `json:"end_perc"`
	StartCost float64        `json:"start_cost"`
	EndCost   float64        `json:"end_cost"`
	Geometry  orb.LineString `json:"geometry"`
}

// StartPointJSON holds the shapes of one start vertex.
type StartPointJSON struct {
	StartID int64       `json:"start_id"`
	Snapped *SnapJSON   `json:"snapped,omitempty"`
	Shapes  []ShapeJSON `json:"shapes"`
}

// SnapJSON describes how a requested coordinate was snapped to the network.
type SnapJSON struct {
	Requested      LatLngJSON `json:"requested"`
	Vertex         LatLngJSON `json:"vertex"`
	DistanceMeters float64    `json:"distance_meters"`
}

// ShapeJSON is the boundary for one limit. Ring is closed, [lng, lat] pairs.
type ShapeJSON struct {
	Limit float64  `json:"limit"`
	Ring  orb.Ring `json:"ring"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumVertices int   `json:"num_vertices"`
	NumEdges    int   `json:"num_edges"`
	NumArcs     int   `json:"num_arcs"`
	Requests    int64 `json:"requests"`
	Isochrones  int64 `json:"isochrones"`
	Failures    int64 `json:"failures"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
