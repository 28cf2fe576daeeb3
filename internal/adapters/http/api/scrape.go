package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/okian/roomexporter/internal/adapters/upstream"
	"github.com/okian/roomexporter/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeHandler runs one fetch-project-serialize cycle per request.
type ScrapeHandler struct {
	exporter   Exporter
	exposition http.Handler
	logger     logger.Logger
}

// NewScrapeHandler creates a scrape handler for exporter.
func NewScrapeHandler(exporter Exporter, log logger.Logger) *ScrapeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ScrapeHandler{
		exporter:   exporter,
		exposition: newExpositionHandler(exporter, log),
		logger:     log,
	}
}

// HandleScrape handles GET requests on any path not claimed by another route.
// On an upstream failure it answers 500 with a plain-text diagnostic and
// does not touch the registry.
func (h *ScrapeHandler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	if methodNotAllowed(w, r) {
		return
	}
	ctx := r.Context()
	scrapeID := uuid.NewString()
	start := time.Now()

	st, err := h.exporter.Refresh(ctx)
	if err != nil {
		h.logger.Error(ctx, "scrape failed",
			logger.String("scrape_id", scrapeID),
			logger.String("kind", upstream.KindName(err)),
			logger.Error(err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, "%v: %v\n", ErrScrape, err)
		return
	}

	h.logger.Debug(ctx, "scrape refreshed",
		logger.String("scrape_id", scrapeID),
		logger.Int("rooms", st.Rooms),
		logger.Int("appointments", st.Appointments),
		logger.Int("series", st.Series),
		logger.Duration("elapsed", time.Since(start)))

	h.exposition.ServeHTTP(w, r)
}

// newExpositionHandler serializes g with content negotiation. Gather errors
// fail the request rather than serving a partial registry.
func newExpositionHandler(g prometheus.Gatherer, log logger.Logger) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      promLogger{log: log},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promLogger adapts logger.Logger to promhttp.Logger.
type promLogger struct {
	log logger.Logger
}

func (l promLogger) Println(v ...interface{}) {
	l.log.Error(context.Background(), fmt.Sprint(v...))
}
