package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dispatchboard/core/audit"
	"github.com/kilianp07/dispatchboard/core/board"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/factory"
	"github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/infra/backend/rediscache"
	"github.com/kilianp07/dispatchboard/infra/monitoring"
	"github.com/kilianp07/dispatchboard/infra/mqtt"
)

// EnvPrefix starts every environment override; "__" separates nested keys,
// e.g. DSP_BACKEND__TYPE=http.
const EnvPrefix = "DSP_"

type Config struct {
	Tenant   string               `json:"tenant"`
	Backend  factory.ModuleConfig `json:"backend"`
	Cache    rediscache.Config    `json:"cache"`
	Board    board.Config         `json:"board"`
	Dispatch dispatch.Config      `json:"dispatch"`
	HTTP     HTTPConfig           `json:"http"`
	Metrics  metrics.Config       `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Audit    audit.Config         `json:"audit"`
	Sentry   monitoring.Config    `json:"sentry"`
	Logging  LoggingConfig        `json:"logging"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides: DSP_HTTP__ADDR becomes http.addr, and
	// the provider nests on the callback's "." output.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = "memory"
	}
	c.Cache.SetDefaults()
	c.Board.SetDefaults()
	c.Dispatch.SetDefaults()
	c.HTTP.SetDefaults()
	c.MQTT.SetDefaults()
	c.Audit.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate reports every invalid section at once.
func (c Config) Validate() error {
	var errs []error
	if c.Tenant == "" {
		errs = append(errs, fmt.Errorf("tenant is required"))
	}
	sections := []struct {
		name string
		err  error
	}{
		{"cache", c.Cache.Validate()},
		{"board", c.Board.Validate()},
		{"dispatch", c.Dispatch.Validate()},
		{"http", c.HTTP.Validate()},
		{"mqtt", c.MQTT.Validate()},
		{"audit", c.Audit.Validate()},
		{"sentry", c.Sentry.Validate()},
		{"logging", c.Logging.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, s.err))
		}
	}
	return errors.Join(errs...)
}
