// Package metrics provides the exporter's own Prometheus telemetry.
//
// These metrics live on a registry separate from the room metrics so that a
// scrape of the room endpoint only ever returns room families.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Manager manages the exporter's self-telemetry.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer
	runtimeMetrics   bool

	// Scrape cycle
	scrapes               *prometheus.CounterVec
	upstreamFetch         prometheus.Histogram
	upstreamErrors        *prometheus.CounterVec
	lastSuccessUnix       prometheus.Gauge
	rooms                 prometheus.Gauge
	busyRooms             prometheus.Gauge
	appointments          prometheus.Gauge
	appointmentSeries     prometheus.Gauge
	collapsedAppointments prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// DefaultNamespace prefixes every exporter metric unless overridden.
const DefaultNamespace = "roomexporter"

// VariableLabels lists the label names the exporter metrics and histograms
// use. Constant labels must not reuse them.
func VariableLabels() []string {
	return []string{"result", "kind", "endpoint", "method", "status_code", "le"}
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry it
// registers on a fresh private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        DefaultNamespace,
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	if !m.enabled {
		// Metrics are still created so recording never nil-panics, but
		// they are not registered anywhere.
		auto = promauto.With(nil)
	}
	labels := prometheus.Labels(m.customLabels)

	m.scrapes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "scrapes_total",
		Help:        "Total number of scrape cycles by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.upstreamFetch = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_fetch_duration_seconds",
		Help:        "Duration of rooms API calls, successful or not",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.upstreamErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_errors_total",
		Help:        "Total number of failed rooms API calls by kind",
		ConstLabels: labels,
	}, []string{"kind"})

	m.lastSuccessUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_timestamp_seconds",
		Help:        "Unix timestamp of the last successful scrape cycle",
		ConstLabels: labels,
	})

	m.rooms = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rooms",
		Help:        "Number of rooms in the latest snapshot",
		ConstLabels: labels,
	})

	m.busyRooms = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "busy_rooms",
		Help:        "Number of busy rooms in the latest snapshot",
		ConstLabels: labels,
	})

	m.appointments = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "appointments",
		Help:        "Number of appointments in the latest snapshot",
		ConstLabels: labels,
	})

	m.appointmentSeries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "appointment_series",
		Help:        "Number of distinct appointment series exposed after the latest snapshot",
		ConstLabels: labels,
	})

	m.collapsedAppointments = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "collapsed_appointments_total",
		Help:        "Appointments merged into an existing series because all labeled fields matched",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	if m.enabled && m.runtimeMetrics {
		if err := registerRuntimeCollectors(m.registry); err != nil {
			panic(err)
		}
	}
}

// registerRuntimeCollectors adds the Go runtime and process collectors to
// reg. Registering twice is not an error.
func registerRuntimeCollectors(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register runtime collector: %w", err)
		}
	}
	return nil
}

// RecordScrape increments the scrape counter for result.
func (m *Manager) RecordScrape(result string) {
	m.scrapes.WithLabelValues(result).Inc()
}

// RecordUpstreamFetch records the duration of one rooms API call in seconds.
func (m *Manager) RecordUpstreamFetch(seconds float64) {
	m.upstreamFetch.Observe(seconds)
}

// RecordUpstreamError increments the upstream error counter for kind.
func (m *Manager) RecordUpstreamError(kind string) {
	m.upstreamErrors.WithLabelValues(kind).Inc()
}

// UpdateSnapshot publishes the shape of the latest projected snapshot.
func (m *Manager) UpdateSnapshot(unixSeconds float64, rooms, busy, appointments, series int) {
	m.lastSuccessUnix.Set(unixSeconds)
	m.rooms.Set(float64(rooms))
	m.busyRooms.Set(float64(busy))
	m.appointments.Set(float64(appointments))
	m.appointmentSeries.Set(float64(series))
	if appointments > series {
		m.collapsedAppointments.Add(float64(appointments - series))
	}
}

// RecordHTTPRequest records a served HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// Gatherer returns the registry the manager registers on. It is nil when
// metrics are disabled or the registry cannot be gathered.
func (m *Manager) Gatherer() prometheus.Gatherer {
	if !m.enabled {
		return nil
	}
	g, _ := m.registry.(prometheus.Gatherer)
	return g
}
