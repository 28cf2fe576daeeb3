package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/roomexporter/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When API_URL is not set", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails with a missing API URL error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrMissingAPIURL), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When only API_URL is set", func() {
			t.Setenv("API_URL", "http://rooms.local:8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it loads with defaults for everything else", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.APIURL, convey.ShouldEqual, "http://rooms.local:8080")
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When API_URL is not an absolute http URL", func() {
			t.Setenv("API_URL", "rooms.local")

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrMissingAPIURL), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When prefixed environment variables are set", func() {
			t.Setenv("API_URL", "http://legacy.local")
			t.Setenv("ROOMEXPORTER_API_URL", "https://rooms.example.com")
			t.Setenv("ROOMEXPORTER_ADDR", ":9100")
			t.Setenv("ROOMEXPORTER_LOG_LEVEL", "debug")
			t.Setenv("ROOMEXPORTER_RUNTIME_METRICS", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override API_URL and defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.APIURL, convey.ShouldEqual, "https://rooms.example.com")
				convey.So(cfg.Addr, convey.ShouldEqual, ":9100")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.RuntimeMetrics, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When an unrelated variable shares the API_URL prefix", func() {
			t.Setenv("API_URL_BACKUP", "http://other.local")

			_, err := config.Load(ctx)

			convey.Convey("Then it is ignored", func() {
				convey.So(errors.Is(err, config.ErrMissingAPIURL), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
api_url: "http://file.local"
log_level: warn
user_agent: "rooms-prod"
const_labels:
  site: hq
`
			tmpFile := createTempConfigFile(t, yamlContent)
			t.Setenv("ROOMEXPORTER_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.APIURL, convey.ShouldEqual, "http://file.local")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.UserAgent, convey.ShouldEqual, "rooms-prod")
				convey.So(cfg.ConstLabels, convey.ShouldResemble, map[string]string{"site": "hq"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\napi_url: \"http://file.local\"\n")
			t.Setenv("ROOMEXPORTER_CONFIG", tmpFile)
			t.Setenv("API_URL", "http://env.local")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.APIURL, convey.ShouldEqual, "http://env.local") // Overridden by env
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")              // From file
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("ROOMEXPORTER_CONFIG", "/nonexistent/roomexporter.yaml")
			t.Setenv("API_URL", "http://rooms.local")

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails with a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When constant labels clash with metric labels or are malformed", func() {
			t.Setenv("API_URL", "http://rooms.local")
			cases := []struct{ name, yaml string }{
				{"room label", "const_labels:\n  room_alias: x\n"},
				{"appointment label", "const_labels:\n  subject: x\n"},
				{"telemetry label", "const_labels:\n  status_code: x\n"},
				{"invalid name", "const_labels:\n  bad-label: x\n"},
				{"reserved prefix", "const_labels:\n  __site: x\n"},
			}
			for _, tc := range cases {
				convey.Convey("Then loading fails for a "+tc.name, func() {
					t.Setenv("ROOMEXPORTER_CONFIG", createTempConfigFile(t, tc.yaml))

					cfg, err := config.Load(ctx)

					convey.So(cfg, convey.ShouldBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, "const_labels")
				})
			}
		})

		convey.Convey("When telemetry settings come from the file", func() {
			yamlContent := `
api_url: "http://rooms.local"
self_metrics: false
metrics_namespace: rooms
metrics_subsystem: exporter
latency_buckets: [0.05, 0.5, 5]
`
			t.Setenv("ROOMEXPORTER_CONFIG", createTempConfigFile(t, yamlContent))

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SelfMetrics, convey.ShouldBeFalse)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "rooms")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "exporter")
				convey.So(cfg.LatencyBuckets, convey.ShouldResemble, []float64{0.05, 0.5, 5})
			})
		})

		convey.Convey("When latency buckets are not increasing", func() {
			t.Setenv("ROOMEXPORTER_CONFIG", createTempConfigFile(t, "api_url: \"http://rooms.local\"\nlatency_buckets: [1, 0.5]\n"))

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "latency_buckets")
			})
		})

		convey.Convey("When the metrics namespace is not a valid name", func() {
			t.Setenv("API_URL", "http://rooms.local")
			t.Setenv("ROOMEXPORTER_METRICS_NAMESPACE", "room-exporter")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_namespace")
			})
		})

		convey.Convey("When addr is blanked", func() {
			t.Setenv("API_URL", "http://rooms.local")
			t.Setenv("ROOMEXPORTER_ADDR", " ")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_URL",
		"API_URL_BACKUP",
		"ROOMEXPORTER_CONFIG",
		"ROOMEXPORTER_API_URL",
		"ROOMEXPORTER_ADDR",
		"ROOMEXPORTER_LOG_LEVEL",
		"ROOMEXPORTER_USER_AGENT",
		"ROOMEXPORTER_RUNTIME_METRICS",
		"ROOMEXPORTER_SELF_METRICS",
		"ROOMEXPORTER_METRICS_NAMESPACE",
		"ROOMEXPORTER_METRICS_SUBSYSTEM",
	} {
		// Setenv registers the restore; Unsetenv makes the variable absent.
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "roomexporter-*.yaml")
	if err != nil {
		t.Fatalf("create temp config: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp config: %v", err)
	}
	return f.Name()
}
