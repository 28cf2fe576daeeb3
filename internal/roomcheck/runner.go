package roomcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/roomexporter/internal/domain/model"
	"github.com/okian/roomexporter/pkg/logger"
)

// Defaults applied by Normalize.
const (
	DefaultListen          = ":8081"
	DefaultExporterURL     = "http://localhost:8000/metrics"
	DefaultScrapes         = 10
	DefaultRooms           = 5
	DefaultMaxAppointments = 4
	DefaultTimeout         = 30 * time.Second
	shutdownTimeout        = 5 * time.Second
)

// ErrVerification marks a scrape that did not match the served snapshot.
var ErrVerification = errors.New("scrape verification failed")

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.ExporterURL == "" {
		c.ExporterURL = DefaultExporterURL
	}
	if c.Scrapes <= 0 {
		c.Scrapes = DefaultScrapes
	}
	if c.Rooms <= 0 {
		c.Rooms = DefaultRooms
	}
	if c.MaxAppointments < 0 {
		c.MaxAppointments = DefaultMaxAppointments
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Run serves the synthetic rooms API on config.Listen and verifies
// config.Scrapes scrapes of the exporter, which must be configured with
// API_URL pointing at the listen address.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	config.Normalize()
	log := logger.Get().Named("roomcheck")

	gen := NewGenerator(config)
	ln, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", config.Listen, err)
	}
	srv := &http.Server{Handler: NewRoomsHandler(gen), ReadHeaderTimeout: config.Timeout}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "synthetic rooms API listening",
		logger.String("addr", ln.Addr().String()),
		logger.String("exporter", config.ExporterURL))

	return Verify(ctx, config, gen)
}

// Verify scrapes the exporter config.Scrapes times and checks each result
// against the snapshot gen served during that scrape.
func Verify(ctx context.Context, config *Config, gen *Generator) (*Stats, error) {
	config.Normalize()
	log := logger.Get().Named("roomcheck")
	client := newHTTPClient(config.Timeout)
	stats := &Stats{StartTime: time.Now()}

	for i := 0; i < config.Scrapes; i++ {
		if i > 0 && config.Interval > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(config.Interval):
			}
		}

		status, body, err := scrape(ctx, client, config.ExporterURL)
		stats.Scrapes++
		if err != nil {
			return stats, err
		}
		if status != http.StatusOK {
			return stats, fmt.Errorf("%w: scrape %d: status %d: %s", ErrVerification, i+1, status, body)
		}

		snapshot, seq := gen.Last()
		if seq == 0 {
			return stats, fmt.Errorf("%w: exporter never called the rooms API", ErrVerification)
		}
		occupied, series, err := verifyScrape(body, snapshot, seq)
		if err != nil {
			return stats, fmt.Errorf("%w: scrape %d: %w", ErrVerification, i+1, err)
		}

		stats.Verified++
		stats.RoomsSeen += occupied
		stats.SeriesSeen += series
		stats.AppointmentsSeen += model.AppointmentCount(snapshot)
		if config.Verbose {
			log.Info(ctx, "scrape verified",
				logger.Int("scrape", i+1),
				logger.Int("rooms", occupied),
				logger.Int("series", series))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "all scrapes verified",
		logger.Int("scrapes", stats.Verified),
		logger.Int("series", stats.SeriesSeen),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}
