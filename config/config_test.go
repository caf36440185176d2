package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/natefinch/lumberjack.v2"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `tenant: acme
backend:
  type: http
  conf:
    base_url: "http://schedule.local"
    timeout_seconds: 5
cache:
  enabled: true
  addr: "redis:6379"
  ttl_seconds: 15
board:
  refresh_interval_seconds: 60
  slot_minutes: 30
  conflicts:
    include_all: true
dispatch:
  request_timeout_seconds: 4
http:
  addr: ":9000"
  token: "secret"
metrics:
  prometheus_addr: ":9102"
  sinks:
    - type: "prometheus"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  qos:
    notification: 2
audit:
  type: jsonl
sentry:
  dsn: ""
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"tenant", cfg.Tenant, "acme"},
		{"backend.type", cfg.Backend.Type, "http"},
		{"backend.conf.base_url", cfg.Backend.Conf["base_url"], "http://schedule.local"},
		{"cache.addr", cfg.Cache.Addr, "redis:6379"},
		{"cache.ttl_seconds", cfg.Cache.TTLSeconds, 15},
		{"cache.prefix", cfg.Cache.Prefix, "dispatchboard"},
		{"board.refresh_interval_seconds", cfg.Board.RefreshIntervalSeconds, 60},
		{"board.slot_minutes", cfg.Board.SlotMinutes, 30},
		{"board.conflicts.include_all", cfg.Board.Conflicts.IncludeAll, true},
		{"dispatch.request_timeout_seconds", cfg.Dispatch.RequestTimeoutSeconds, 4},
		{"dispatch.event_buffer", cfg.Dispatch.EventBuffer, 32},
		{"http.addr", cfg.HTTP.Addr, ":9000"},
		{"http.retry_after_seconds", cfg.HTTP.RetryAfterSeconds, 5},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":9102"},
		{"metrics.sinks", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "prometheus", true},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.topic_prefix", cfg.MQTT.TopicPrefix, "dispatch"},
		{"mqtt.qos.notification", cfg.MQTT.QoS["notification"], byte(2)},
		{"audit.path", cfg.Audit.Path, "audit/assignments.jsonl"},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"tenant": "acme", "http": {"addr": ":8080"}}`)
	t.Setenv("DSP_TENANT", "globex")
	t.Setenv("DSP_HTTP__ADDR", ":7070")
	t.Setenv("DSP_CACHE__TTL_SECONDS", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Tenant != "globex" {
		t.Errorf("tenant %q", cfg.Tenant)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("http.addr %q", cfg.HTTP.Addr)
	}
	if cfg.Cache.TTLSeconds != 90 {
		t.Errorf("cache.ttl_seconds %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Backend.Type != "memory" {
		t.Errorf("default backend %q", cfg.Backend.Type)
	}
	if cfg.HTTP.Addr == "" || cfg.Tenant == "" {
		t.Fatalf("file values lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing tenant":   "board: {}\n",
		"bad board window": "tenant: a\nboard:\n  day_start: \"18:00\"\n  day_end: \"08:00\"\n",
		"mqtt no broker":   "tenant: a\nmqtt:\n  enabled: true\n",
		"bad audit type":   "tenant: a\naudit:\n  type: postgres\n",
		"bad log level":    "tenant: a\nlogging:\n  level: loud\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "c.yaml", data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Load(writeConfig(t, "c.toml", "tenant = 'a'")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoggingWriter(t *testing.T) {
	c := LoggingConfig{}
	c.SetDefaults()
	if c.Writer() != os.Stdout {
		t.Fatalf("expected stdout")
	}
	c = LoggingConfig{File: filepath.Join(t.TempDir(), "app.log")}
	c.SetDefaults()
	lj, ok := c.Writer().(*lumberjack.Logger)
	if !ok {
		t.Fatalf("expected lumberjack writer, got %T", c.Writer())
	}
	if lj.MaxSize != 50 {
		t.Fatalf("max size %d", lj.MaxSize)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.Backend.Type != "memory" || cfg.Backend.Conf["fixture"] != "qa/fixtures/demo.yaml" {
		t.Fatalf("unexpected backend %+v", cfg.Backend)
	}
	if cfg.Metrics.PrometheusAddr != ":9102" || len(cfg.Metrics.Sinks) != 1 {
		t.Fatalf("unexpected metrics %+v", cfg.Metrics)
	}
}
