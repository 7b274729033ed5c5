package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetcast/core/forecastlog"
	"github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/infra/mqtt"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: K_FORECAST__MAX_HORIZON=24 sets forecast.max_horizon.
const EnvPrefix = "K_"

type Config struct {
	Server    ServerConfig       `json:"server"`
	Forecast  ForecastConfig     `json:"forecast"`
	Artifacts ArtifactsConfig    `json:"artifacts"`
	Metrics   metrics.Config     `json:"metrics"`
	Logging   forecastlog.Config `json:"logging"`
	Sentry    SentryConfig       `json:"sentry"`
	MQTT      mqtt.Config        `json:"mqtt"`
}

// envKey maps K_FORECAST__MAX_HORIZON to forecast.max_horizon.
func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Load reads a YAML or JSON file, applies environment overrides, fills
// defaults and validates the result. An empty path loads defaults and
// environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
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
	c.Server.SetDefaults()
	c.Forecast.SetDefaults()
	c.Artifacts.SetDefaults()
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"forecast", c.Forecast.Validate},
		{"artifacts", c.Artifacts.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
		{"mqtt", c.MQTT.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
	}
	return nil
}
