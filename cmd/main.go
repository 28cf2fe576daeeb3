package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/roomexporter/internal/adapters/http/api"
	"github.com/okian/roomexporter/internal/adapters/upstream"
	app "github.com/okian/roomexporter/internal/app"
	"github.com/okian/roomexporter/internal/config"
	"github.com/okian/roomexporter/internal/domain/projection"
	"github.com/okian/roomexporter/pkg/logger"
	"github.com/okian/roomexporter/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP server timeout constants. WriteTimeout is generous because a scrape
// waits on the rooms API, which has no timeout of its own.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		// Logger isn't available yet.
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env). A missing
	// API_URL stops the process before anything listens.
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to load config", logger.Error(err))
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	handler, err := newHandler(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to build exporter", logger.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		loggerInstance.Info(ctx, "exporter listening",
			logger.String("addr", cfg.Addr),
			logger.String("api_url", cfg.APIURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		loggerInstance.Info(ctx, "shutting down server...")
	case err := <-serveErr:
		if err != nil {
			loggerInstance.Fatal(ctx, "HTTP server failed", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newHandler wires the rooms client, projector, service and routes.
func newHandler(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, error) {
	// Label and bucket settings panic at registration unless validated.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := upstream.New(cfg.APIURL,
		upstream.WithUserAgent(cfg.UserAgent),
		upstream.WithLogger(log.Named("upstream")),
	)
	if err != nil {
		return nil, fmt.Errorf("rooms client: %w", err)
	}

	telemetry := metrics.NewManager(
		metrics.WithPrometheusRegistry(prometheus.NewRegistry()),
		metrics.WithMetricsEnabled(cfg.SelfMetrics),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.LatencyBuckets),
		metrics.WithCustomLabels(cfg.ConstLabels),
		metrics.WithRuntimeMetrics(cfg.RuntimeMetrics),
	)

	svc := app.New(client,
		app.WithProjector(projection.New(projection.WithConstLabels(cfg.ConstLabels))),
		app.WithMetrics(telemetry),
		app.WithLogger(log.Named("service")),
	)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, telemetry, log.Named("http")).Register(ctx, mux)
	return mux, nil
}
