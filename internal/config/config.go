// Package config defines exporter configuration and how it is loaded.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - Errors wrap this package's sentinels so callers can use errors.Is.
package config

import (
	"context"

	"github.com/okian/roomexporter/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`
	// APIURL is the base address of the rooms API. Required.
	APIURL string `koanf:"api_url"`
	// UserAgent is sent with every upstream request.
	UserAgent string `koanf:"user_agent"`
	// ConstLabels are attached to every room series. Empty by default.
	ConstLabels map[string]string `koanf:"const_labels"`
	// RuntimeMetrics adds Go runtime and process collectors to /-/metrics.
	RuntimeMetrics bool `koanf:"runtime_metrics"`
	// SelfMetrics serves exporter telemetry on /-/metrics. When false the
	// route is not registered.
	SelfMetrics bool `koanf:"self_metrics"`
	// MetricsNamespace and MetricsSubsystem prefix the telemetry metric names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	// LatencyBuckets overrides the histogram buckets, in seconds, for the
	// upstream and HTTP latency metrics. Must be strictly increasing; set it
	// in the YAML file.
	LatencyBuckets []float64 `koanf:"latency_buckets"`
}

// New creates a Config populated with defaults. APIURL has no default.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8000",
		UserAgent:        "roomexporter",
		RuntimeMetrics:   true,
		SelfMetrics:      true,
		MetricsNamespace: metrics.DefaultNamespace,
	}
}
