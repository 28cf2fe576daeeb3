// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/roomexporter/internal/domain/projection"
	"github.com/okian/roomexporter/pkg/logger"
	"github.com/okian/roomexporter/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter is what the scrape endpoint drives: one refresh per request,
// then serialization of the room registry.
type Exporter interface {
	prometheus.Gatherer

	// Refresh fetches the rooms and projects them. On error the registry
	// must be left as it was.
	Refresh(ctx context.Context) (projection.Stats, error)
}

// Route paths. Everything not listed here is a scrape.
const (
	PathHealth    = "/healthz"
	PathStats     = "/stats"
	PathSelfStats = "/-/metrics"
	PathScrape    = "/"
)

// Server wires HTTP routes for the exporter.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	scrapeHandler *ScrapeHandler
	selfHandler   http.Handler
	telemetry     *metrics.Manager
}

// NewServer creates a new API server with all handlers. HTTP requests are
// recorded on telemetry, whose registry is also served on PathSelfStats.
// A nil or disabled telemetry manager drops that route.
func NewServer(exporter Exporter, statsProvider StatsProvider, telemetry *metrics.Manager, log logger.Logger) *Server {
	if telemetry == nil {
		telemetry = metrics.NewManager(metrics.WithMetricsEnabled(false))
	}
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		scrapeHandler: NewScrapeHandler(exporter, log),
		telemetry:     telemetry,
	}
	if g := telemetry.Gatherer(); g != nil {
		s.selfHandler = newExpositionHandler(g, log)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	// Specific paths first; the scrape endpoint catches everything else.
	mux.HandleFunc(PathHealth, MetricsMiddleware(s.telemetry, s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc(PathStats, MetricsMiddleware(s.telemetry, s.statsHandler.HandleStats, "stats"))
	if s.selfHandler != nil {
		mux.HandleFunc(PathSelfStats, MetricsMiddleware(s.telemetry, s.selfHandler.ServeHTTP, "self_metrics"))
	}
	mux.HandleFunc(PathScrape, MetricsMiddleware(s.telemetry, s.scrapeHandler.HandleScrape, "scrape"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// methodNotAllowed rejects anything but GET and HEAD.
func methodNotAllowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return false
	}
	w.Header().Set("Allow", "GET, HEAD")
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
	return true
}
