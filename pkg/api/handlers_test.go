package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isochrone_engine/pkg/graph"
	"isochrone_engine/pkg/isochrone"
	"isochrone_engine/pkg/routing"
)

// newTestHandlers serves a three-vertex street: 1 - 2 - 3, costs 60 and 90.
func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	edges := []graph.Edge{
		{ID: 10, Source: 1, Target: 2, Cost: 60, ReverseCost: 60, Length: 111,
			Geometry: orb.LineString{{103.850, 1.300}, {103.851, 1.300}}},
		{ID: 20, Source: 2, Target: 3, Cost: 90, ReverseCost: 90, Length: 111,
			Geometry: orb.LineString{{103.851, 1.300}, {103.851, 1.301}}},
	}
	calc, err := isochrone.New(edges, isochrone.WithWorkers(2))
	require.NoError(t, err)
	return NewHandlers(calc, routing.NewSnapper(calc.Network(), 200))
}

func postIsochrone(h *Handlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/isochrone", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleIsochrone(w, req)
	return w
}

func TestHandleIsochrone_Success(t *testing.T) {
	h := newTestHandlers(t)

	w := postIsochrone(h, `{"starts":[{"lat":1.3001,"lng":103.8499}],"start_vertices":[3],"limits":[120,60]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp IsochroneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.StartPoints, 2)
	first := resp.StartPoints[0]
	assert.Equal(t, int64(1), first.StartID)
	require.NotNil(t, first.Snapped)
	assert.Equal(t, LatLngJSON{Lat: 1.300, Lng: 103.850}, first.Snapped.Vertex)
	assert.Positive(t, first.Snapped.DistanceMeters)

	second := resp.StartPoints[1]
	assert.Equal(t, int64(3), second.StartID)
	assert.Nil(t, second.Snapped)

	require.NotEmpty(t, resp.Network)
	assert.Equal(t, int64(1), resp.Network[0].StartID)
	assert.Equal(t, int64(10), resp.Network[0].EdgeID)
	assert.Equal(t, 60.0, resp.Network[0].Limit)
	assert.Equal(t, 1.0, resp.Network[0].EndPerc)
	assert.Equal(t, orb.LineString{{103.850, 1.300}, {103.851, 1.300}}, resp.Network[0].Geometry)
}

func TestHandleIsochrone_GeoJSON(t *testing.T) {
	h := newTestHandlers(t)

	w := postIsochrone(h, `{"start_vertices":[2],"limits":[30],"format":"geojson"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.NotEmpty(t, fc.Features)
}

func TestHandleIsochrone_UnknownVertex(t *testing.T) {
	h := newTestHandlers(t)

	w := postIsochrone(h, `{"start_vertices":[99],"limits":[30]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp IsochroneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Network, 1)
	assert.Equal(t, graph.NoEdge, resp.Network[0].EdgeID)
	require.Len(t, resp.StartPoints, 1)
	assert.Empty(t, resp.StartPoints[0].Shapes)
}

func TestHandleIsochrone_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantError string
		wantField string
	}{
		{"invalid json", `not json`, http.StatusBadRequest, "invalid_request", ""},
		{"no starts", `{"limits":[10]}`, http.StatusBadRequest, "invalid_start_count", "starts"},
		{"no limits", `{"start_vertices":[1]}`, http.StatusBadRequest, "invalid_limits", "limits"},
		{"negative limit", `{"start_vertices":[1],"limits":[-5]}`, http.StatusBadRequest, "invalid_limits", "limits"},
		{"bad format", `{"start_vertices":[1],"limits":[5],"format":"xml"}`, http.StatusBadRequest, "invalid_format", "format"},
		{"out of range", `{"starts":[{"lat":91,"lng":103.8}],"limits":[5]}`, http.StatusBadRequest, "invalid_coordinates", "starts[0]"},
		{"too far", `{"starts":[{"lat":1.0,"lng":103.0}],"limits":[5]}`, http.StatusUnprocessableEntity, "point_too_far_from_road", "starts[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(t)
			w := postIsochrone(h, tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.wantField, resp.Field)
		})
	}
}

func TestHandleIsochrone_TooManyStarts(t *testing.T) {
	h := newTestHandlers(t)
	h.maxStarts = 2

	w := postIsochrone(h, `{"start_vertices":[1,2,3],"limits":[5]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIsochrone_MissingContentType(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/v1/isochrone", strings.NewReader(`{"start_vertices":[1],"limits":[5]}`))
	w := httptest.NewRecorder()
	h.HandleIsochrone(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStats(t *testing.T) {
	h := newTestHandlers(t)
	postIsochrone(h, `{"start_vertices":[1,2],"limits":[30]}`)
	postIsochrone(h, `not json`)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	h.HandleStats(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatsResponse{
		NumVertices: 3,
		NumEdges:    2,
		NumArcs:     4,
		Requests:    2,
		Isochrones:  2,
	}, resp)
}

func TestHandlersSwap(t *testing.T) {
	h := newTestHandlers(t)

	edges := []graph.Edge{{ID: 1, Source: 7, Target: 8, Cost: 1, ReverseCost: -1,
		Geometry: orb.LineString{{0, 0}, {0.001, 0}}}}
	calc, err := isochrone.New(edges)
	require.NoError(t, err)
	h.Swap(calc, routing.NewSnapper(calc.Network(), 0))

	w := postIsochrone(h, `{"start_vertices":[7],"limits":[5]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp IsochroneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Network, 1)
	assert.Equal(t, int64(1), resp.Network[0].EdgeID)
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.HandleHealth(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestServerRoutes(t *testing.T) {
	cfg := DefaultConfig(":0")
	cfg.CORSOrigin = "*"
	srv := NewServer(cfg, newTestHandlers(t))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/v1/isochrone", nil)
	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
