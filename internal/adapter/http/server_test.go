package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/response-map-service/internal/adapter/http"
	"github.com/couchcryptid/response-map-service/internal/domain"
	"github.com/couchcryptid/response-map-service/internal/observability"
	"github.com/couchcryptid/response-map-service/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error, region *domain.BoundingBox) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer := pipeline.NewTransformer(domain.NewRenderer(region, nil), nil, observability.NewMetricsForTesting(), logger)
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, renderer, region, logger)
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(newTestServer(errors.New("not ready yet"), nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

const renderBody = `{
	"incidents": [
		{"case_id": 1, "location": "38.40,-3.42", "priority_level": "CRITICAL", "created_at": "2024-03-01T10:00:00Z"},
		{"case_id": 2, "location": "not a coordinate", "created_at": "2024-03-01T10:05:00Z"},
		{"case_id": 3, "location": "38.30,-3.30", "priority_level": "LOW", "created_at": "2024-03-01T10:10:00Z"}
	],
	"route": {"start_point_gps": "38.5561,-3.3961", "route_order": [3, 1], "total_distance": 5230, "total_duration": 3900}
}`

func TestRenderMap(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodPost, "/api/v1/map", renderBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rendered domain.RenderedMap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rendered))

	labels := make([]string, 0, len(rendered.Result.Map.Markers))
	for _, mk := range rendered.Result.Map.Markers {
		labels = append(labels, mk.Label)
	}
	assert.Equal(t, []string{"S", "2", "1"}, labels)
	assert.Len(t, rendered.Result.Map.Polyline, 3)
	assert.Equal(t, 1, rendered.Result.InvalidIncidents)
	require.NotNil(t, rendered.Result.Summary)
	assert.Equal(t, "5.23 km", rendered.Result.Summary.Distance)
	assert.Equal(t, "1h 5m", rendered.Result.Summary.Duration)
	assert.NotEmpty(t, rendered.SnapshotKey, "request id is echoed as the snapshot key")
	assert.Equal(t, rendered.SnapshotKey, rec.Header().Get("X-Request-ID"))
}

func TestRenderMap_KeepsCallerRequestID(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/map", strings.NewReader(`{"incidents":[]}`))
	req.Header.Set("X-Request-ID", "dispatch-42")
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dispatch-42", rec.Header().Get("X-Request-ID"))

	var rendered domain.RenderedMap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rendered))
	assert.Equal(t, "dispatch-42", rendered.SnapshotKey)
	assert.Empty(t, rendered.Result.Map.Markers)
	assert.Len(t, rendered.Result.Map.Bounds, 1, "empty map falls back to the default center")
}

func TestRenderMap_GeoJSON(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodPost, "/api/v1/map?format=geojson", renderBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)

	var points, lines int
	for _, f := range fc.Features {
		switch f.Geometry.Type {
		case "Point":
			points++
		case "LineString":
			lines++
		}
	}
	assert.Equal(t, 3, points)
	assert.Equal(t, 1, lines)
}

func TestRenderMap_InvalidJSON(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodPost, "/api/v1/map", `{"incidents":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderMap_BadRouteMetadataStillRenders(t *testing.T) {
	body := `{
		"incidents": [{"case_id": 1, "location": "38.40,-3.42", "created_at": "2024-03-01T10:00:00Z"}],
		"route": {"route_id": "r-7", "start_point_gps": "38.5561,-3.3961", "route_order": [1, "x"], "total_distance": "5.2 km"}
	}`
	rec := do(newTestServer(nil, nil), http.MethodPost, "/api/v1/map", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var rendered domain.RenderedMap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rendered))
	assert.Len(t, rendered.Result.Map.Markers, 2)
	assert.Len(t, rendered.Result.Map.Polyline, 2)

	kinds := make(map[domain.DiagnosticKind]int)
	for _, d := range rendered.Diagnostics {
		kinds[d.Kind]++
	}
	assert.Equal(t, 2, kinds[domain.DiagInvalidField])
	assert.Equal(t, 1, kinds[domain.DiagUnresolvedRef])
}

func TestRenderMap_BodyTooLarge(t *testing.T) {
	body := `{"incidents":[` + strings.Repeat(" ", 2<<20) + `]}`
	rec := do(newTestServer(nil, nil), http.MethodPost, "/api/v1/map", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRenderMap_WrongMethod(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodGet, "/api/v1/map", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidateCoordinate(t *testing.T) {
	region := domain.TaitaTavetaRegion
	srv := newTestServer(nil, &region)

	tests := []struct {
		name       string
		input      string
		wantStatus string
		wantNorm   string
	}{
		{"valid", "38.55610, -3.39610", "ok", "38.5561,-3.3961"},
		{"malformed", "Voi town", "malformed", ""},
		{"outside region", "36.8219,-1.2921", "out_of_region", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{"coordinates": tt.input}))

			rec := do(srv, http.MethodPost, "/api/v1/coordinates/validate", buf.String())
			require.Equal(t, http.StatusOK, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, tt.wantNorm, body["normalized"])
		})
	}
}

func TestValidateCoordinate_BadRequest(t *testing.T) {
	rec := do(newTestServer(nil, nil), http.MethodPost, "/api/v1/coordinates/validate", `[`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
