package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"

	"isochrone_engine/pkg/isochrone"
	"isochrone_engine/pkg/routing"
)

const (
	// DefaultMaxStarts bounds the start locations of one request.
	DefaultMaxStarts = 64
	maxBodyBytes     = 64 << 10
)

// Handlers holds the HTTP handlers and their dependencies.
// The network can be replaced at runtime with Swap.
type Handlers struct {
	mu      *xsync.RBMutex
	calc    *isochrone.Calculator
	snapper *routing.Snapper

	maxStarts int

	requests   *xsync.Counter
	isochrones *xsync.Counter
	failures   *xsync.Counter
}

// NewHandlers creates handlers over a calculator and a snapper built for the
// same network.
func NewHandlers(calc *isochrone.Calculator, snapper *routing.Snapper) *Handlers {
	return &Handlers{
		mu:         xsync.NewRBMutex(),
		calc:       calc,
		snapper:    snapper,
		maxStarts:  DefaultMaxStarts,
		requests:   xsync.NewCounter(),
		isochrones: xsync.NewCounter(),
		failures:   xsync.NewCounter(),
	}
}

// Swap replaces the network used by subsequent requests. Requests already
// running finish on the old one.
func (h *Handlers) Swap(calc *isochrone.Calculator, snapper *routing.Snapper) {
	h.mu.Lock()
	h.calc = calc
	h.snapper = snapper
	h.mu.Unlock()
}

func (h *Handlers) current() (*isochrone.Calculator, *routing.Snapper) {
	t := h.mu.RLock()
	defer h.mu.RUnlock(t)
	return h.calc, h.snapper
}

// HandleIsochrone handles POST /api/v1/isochrone.
func (h *Handlers) HandleIsochrone(w http.ResponseWriter, r *http.Request) {
	h.requests.Inc()

	// Enforce Content-Type.
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	// Parse request.
	var req IsochroneRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	numStarts := len(req.Starts) + len(req.StartVertices)
	if numStarts == 0 || numStarts > h.maxStarts {
		writeError(w, http.StatusBadRequest, "invalid_start_count", "starts")
		return
	}
	if _, err := isochrone.NormalizeLimits(req.Limits); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limits", "limits")
		return
	}
	if req.Format != "" && req.Format != "json" && req.Format != "geojson" {
		writeError(w, http.StatusBadRequest, "invalid_format", "format")
		return
	}

	// Validate coordinates.
	for i, ll := range req.Starts {
		if err := validateCoord(ll); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", fmt.Sprintf("starts[%d]", i))
			return
		}
	}

	calc, snapper := h.current()

	// Snap.
	snaps := make(map[int]*SnapJSON, len(req.Starts))
	vertices := make([]int64, 0, numStarts)
	for i, ll := range req.Starts {
		s, err := snapper.Snap(ll.Lat, ll.Lng)
		if err != nil {
			if errors.Is(err, routing.ErrPointTooFar) {
				writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", fmt.Sprintf("starts[%d]", i))
				return
			}
			h.failures.Inc()
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}
		snaps[i] = &SnapJSON{
			Requested:      ll,
			Vertex:         LatLngJSON{Lat: s.Point[1], Lng: s.Point[0]},
			DistanceMeters: s.Dist,
		}
		vertices = append(vertices, s.Vertex)
	}
	vertices = append(vertices, req.StartVertices...)

	result, err := calc.Calculate(r.Context(), isochrone.Request{
		StartVertices:    vertices,
		Limits:           req.Limits,
		OnlyMinimumCover: req.OnlyMinimumCover,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
			return
		}
		h.failures.Inc()
		log.WithError(err).Error("isochrone computation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	h.isochrones.Add(int64(len(vertices)))

	if req.Format == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		json.NewEncoder(w).Encode(isochrone.FeatureCollection(result))
		return
	}

	// Build response.
	resp := IsochroneResponse{
		Network: lo.Map(result.Network, func(e isochrone.NetworkEdge, _ int) NetworkEdgeJSON {
			return NetworkEdgeJSON{
				StartID:   e.StartID,
				EdgeID:    e.EdgeID,
				Limit:     e.Limit,
				StartPerc: e.StartPerc,
				EndPerc:   e.EndPerc,
				StartCost: e.StartCost,
				EndCost:   e.EndCost,
				Geometry:  e.Geometry,
			}
		}),
		StartPoints: lo.Map(result.StartPoints, func(sp isochrone.StartPoint, i int) StartPointJSON {
			return StartPointJSON{
				StartID: sp.StartID,
				Snapped: snaps[i],
				Shapes: lo.Map(sp.Shapes, func(s isochrone.Shape, _ int) ShapeJSON {
					return ShapeJSON{Limit: s.Limit, Ring: s.Ring}
				}),
			}
		}),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	calc, _ := h.current()
	net := calc.Network()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StatsResponse{
		NumVertices: net.NumVertices(),
		NumEdges:    len(net.Edges),
		NumArcs:     len(net.Arcs),
		Requests:    h.requests.Value(),
		Isochrones:  h.isochrones.Value(),
		Failures:    h.failures.Value(),
	})
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
