package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/response-map-service/internal/domain"
	"github.com/couchcryptid/response-map-service/internal/pipeline"
)

const (
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// MapRenderer renders a decoded snapshot. pipeline.MapTransformer satisfies it.
type MapRenderer interface {
	Render(ctx context.Context, s domain.Snapshot, source string) domain.RenderedMap
}

// Server exposes the render API alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	renderer   MapRenderer
	region     *domain.BoundingBox
	logger     *slog.Logger
}

// NewServer creates an HTTP server. region is applied by the coordinate
// validation endpoint and may be nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, renderer MapRenderer, region *domain.BoundingBox, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      withRequestID(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		renderer: renderer,
		region:   region,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/map", s.handleRenderMap)
	mux.HandleFunc("POST /api/v1/coordinates/validate", s.handleValidateCoordinate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleRenderMap renders a snapshot body. ?format=geojson returns the map
// as a FeatureCollection instead of the full render result.
func (s *Server) handleRenderMap(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snapshot, err := domain.DecodeSnapshot(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rendered := s.renderer.Render(r.Context(), snapshot, pipeline.SourceHTTP)
	rendered.SnapshotKey = r.Header.Get(requestIDHeader)

	s.logger.Debug("map rendered",
		"request_id", rendered.SnapshotKey,
		"markers", len(rendered.Result.Map.Markers),
		"diagnostics", len(rendered.Diagnostics),
	)

	if r.URL.Query().Get("format") == "geojson" {
		writeJSON(w, http.StatusOK, rendered.Result.Map.FeatureCollection())
		return
	}
	writeJSON(w, http.StatusOK, rendered)
}

type coordinateRequest struct {
	Coordinates string `json:"coordinates"`
}

type coordinateResponse struct {
	Status     string `json:"status"`
	Normalized string `json:"normalized,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// handleValidateCoordinate runs one coordinate string through the codec.
// Rejections are reported in the body with a 200; only an unreadable
// request is a 400.
func (s *Server) handleValidateCoordinate(w http.ResponseWriter, r *http.Request) {
	var req coordinateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, err := domain.ParseCoordinate(req.Coordinates, s.region)
	if err != nil {
		writeJSON(w, http.StatusOK, coordinateResponse{
			Status: string(domain.ReasonFor(err)),
			Detail: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, coordinateResponse{Status: "ok", Normalized: domain.FormatCoordinate(c)})
}

// withRequestID tags every request with an X-Request-ID, reusing the
// caller's when present.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
