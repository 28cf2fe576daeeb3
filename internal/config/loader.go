package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/roomexporter/internal/domain/projection"
	"github.com/okian/roomexporter/pkg/metrics"
	"github.com/prometheus/common/model"
)

// Environment variable names.
const (
	EnvPrefix     = "ROOMEXPORTER_"
	EnvConfigFile = EnvPrefix + "CONFIG"
	// EnvAPIURL is the bare variable the exporter has always read.
	EnvAPIURL = "API_URL"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ROOMEXPORTER_CONFIG is set
//  3. API_URL
//  4. env (prefix ROOMEXPORTER_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// API_URL -> api_url. The prefix match is exact because the callback
	// drops anything else that happens to start with API_URL.
	legacy := env.Provider(EnvAPIURL, ".", func(s string) string {
		if s != EnvAPIURL {
			return ""
		}
		return strings.ToLower(s)
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// ROOMEXPORTER_API_URL -> api_url, ROOMEXPORTER_LOG_LEVEL -> log_level.
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigFile {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the exporter cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	raw := strings.TrimSpace(c.APIURL)
	if raw == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingAPIURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: api_url: %w", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_url must be an absolute http(s) URL, got %q", ErrInvalidConfig, raw)
	}
	if err := validateConstLabels(c.ConstLabels); err != nil {
		return err
	}
	for key, part := range map[string]string{
		"metrics_namespace": c.MetricsNamespace,
		"metrics_subsystem": c.MetricsSubsystem,
	} {
		if part != "" && !model.LabelName(part).IsValidLegacy() {
			return fmt.Errorf("%w: %s %q is not a valid metric name prefix", ErrInvalidConfig, key, part)
		}
	}
	for i := 1; i < len(c.LatencyBuckets); i++ {
		if c.LatencyBuckets[i] <= c.LatencyBuckets[i-1] {
			return fmt.Errorf("%w: latency_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}

// validateConstLabels rejects names Prometheus would refuse at registration:
// invalid or reserved names and names already used as variable labels.
func validateConstLabels(labels map[string]string) error {
	taken := make(map[string]struct{})
	for _, name := range projection.VariableLabels() {
		taken[name] = struct{}{}
	}
	for _, name := range metrics.VariableLabels() {
		taken[name] = struct{}{}
	}

	for name := range labels {
		if !model.LabelName(name).IsValidLegacy() || strings.HasPrefix(name, model.ReservedLabelPrefix) {
			return fmt.Errorf("%w: const_labels: invalid label name %q", ErrInvalidConfig, name)
		}
		if _, ok := taken[name]; ok {
			return fmt.Errorf("%w: const_labels: %q is already a metric label", ErrInvalidConfig, name)
		}
	}
	return nil
}
