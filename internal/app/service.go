// Package service ties the rooms API client to the metric projector.
//
// A Service runs one fetch-project cycle per Refresh call. The fetch runs
// outside any lock, so concurrent scrapes talk to the rooms API in parallel
// and only serialize inside the projector. A failed fetch never touches the
// projector, so the previously published metrics stay as they were.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/roomexporter/internal/adapters/upstream"
	"github.com/okian/roomexporter/internal/domain/model"
	"github.com/okian/roomexporter/internal/domain/projection"
	"github.com/okian/roomexporter/pkg/logger"
	"github.com/okian/roomexporter/pkg/metrics"
	dto "github.com/prometheus/client_model/go"
)

// RoomFetcher returns the current room snapshot.
type RoomFetcher interface {
	FetchRooms(ctx context.Context) ([]model.Room, error)
}

// Service implements the scrape dependencies for the HTTP layer.
type Service struct {
	fetcher   RoomFetcher
	projector *projection.Projector
	metrics   *metrics.Manager
	logger    logger.Logger
	now       func() time.Time

	mu      sync.RWMutex
	scrapes int64
	failed  int64
	last    projection.Stats
	lastOK  time.Time
	lastErr error
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProjector sets the projector that owns the room registry.
func WithProjector(p *projection.Projector) Option {
	return func(s *Service) {
		if p != nil {
			s.projector = p
		}
	}
}

// WithMetrics sets the self-telemetry manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service around fetcher.
func New(fetcher RoomFetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		metrics: metrics.NewManager(metrics.WithMetricsEnabled(false)),
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.projector == nil {
		s.projector = projection.New()
	}
	return s
}

// Refresh fetches the current rooms and projects them. On error the
// projector is left untouched.
func (s *Service) Refresh(ctx context.Context) (projection.Stats, error) {
	start := s.now()
	rooms, err := s.fetcher.FetchRooms(ctx)
	s.metrics.RecordUpstreamFetch(s.now().Sub(start).Seconds())

	if err != nil {
		s.metrics.RecordUpstreamError(upstream.KindName(err))
		s.metrics.RecordScrape(metrics.ResultFailure)
		s.mu.Lock()
		s.scrapes++
		s.failed++
		s.lastErr = err
		s.mu.Unlock()
		return projection.Stats{}, err
	}

	st := s.projector.Project(rooms)
	done := s.now()
	s.metrics.RecordScrape(metrics.ResultSuccess)
	s.metrics.UpdateSnapshot(float64(done.Unix()), st.Rooms, st.BusyRooms, st.Appointments, st.Series)
	if st.Appointments > st.Series {
		s.logger.Debug(ctx, "appointments collapsed onto shared series",
			logger.Int("appointments", st.Appointments),
			logger.Int("series", st.Series))
	}

	s.mu.Lock()
	s.scrapes++
	s.last = st
	s.lastOK = done
	s.lastErr = nil
	s.mu.Unlock()
	return st, nil
}

// Gather serializes the room registry under the projector's read lock.
func (s *Service) Gather() ([]*dto.MetricFamily, error) {
	return s.projector.Gather()
}

// GetStats returns a summary of refresh activity.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"scrapes":      s.scrapes,
		"failed":       s.failed,
		"rooms":        s.last.Rooms,
		"busyRooms":    s.last.BusyRooms,
		"appointments": s.last.Appointments,
		"series":       s.last.Series,
	}
	if !s.lastOK.IsZero() {
		stats["lastSuccess"] = s.lastOK.UTC().Format(time.RFC3339)
	}
	if s.lastErr != nil {
		stats["lastError"] = s.lastErr.Error()
	}
	return stats
}
