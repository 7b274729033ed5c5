package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/fleetcast/core/calendar"
	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/forecast"
)

// ForecastConfig bounds requests and sets the output contract.
type ForecastConfig struct {
	MaxHorizon     int    `json:"max_horizon"`
	DefaultHorizon int    `json:"default_horizon"`
	AllSentinel    string `json:"all_sentinel"`
	// EntityPrefix is stripped from labels unless the bundle sets its own.
	EntityPrefix string `json:"entity_prefix"`
	// Decimals kept in predictions: 0 rounds to whole counts, negative keeps
	// raw values. Bundles may override it per backend.
	Decimals  int `json:"decimals"`
	BatchSize int `json:"batch_size"`
	// CacheSize enables the result cache when positive.
	CacheSize int           `json:"cache_size"`
	CacheTTL  time.Duration `json:"cache_ttl"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.MaxHorizon == 0 {
		c.MaxHorizon = calendar.DefaultMaxHorizon
	}
	if c.DefaultHorizon == 0 {
		c.DefaultHorizon = 5
	}
	if c.AllSentinel == "" {
		c.AllSentinel = forecast.DefaultAllSentinel
	}
	if c.EntityPrefix == "" {
		c.EntityPrefix = encoder.DefaultPrefix
	}
}

// Validate checks the bounds.
func (c ForecastConfig) Validate() error {
	if c.MaxHorizon < 1 {
		return fmt.Errorf("max_horizon must be positive, got %d", c.MaxHorizon)
	}
	if c.DefaultHorizon < 1 || c.DefaultHorizon > c.MaxHorizon {
		return fmt.Errorf("default_horizon %d outside [1,%d]", c.DefaultHorizon, c.MaxHorizon)
	}
	if c.BatchSize < 0 || c.CacheSize < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("batch_size, cache_size and cache_ttl must not be negative")
	}
	return nil
}

// Orchestrator returns the orchestrator settings.
func (c ForecastConfig) Orchestrator() forecast.Config {
	return forecast.Config{MaxHorizon: c.MaxHorizon, AllSentinel: c.AllSentinel}
}
