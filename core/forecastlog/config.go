package forecastlog

import (
	"context"
	"fmt"
	"strings"
)

// Backends accepted by Config.Backend.
const (
	BackendNone     = "none"
	BackendJSONL    = "jsonl"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures the audit store.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	DSN        string `json:"dsn"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendJSONL:
			c.Path = "logs/forecasts.jsonl"
		case BackendSQLite:
			c.Path = "logs/forecasts.db"
		}
	}
}

// Validate checks the backend specific settings.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendNone:
		return nil
	case BackendJSONL, BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("logging.path is required for backend %s", c.Backend)
		}
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("logging.dsn is required for backend postgres")
		}
	default:
		return fmt.Errorf("unknown logging backend %q", c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("logging rotation settings must not be negative")
	}
	return nil
}

// NewStore opens the store described by cfg. It returns nil for backend none.
// A JSONL store rotates when MaxSizeMB is set.
func NewStore(ctx context.Context, cfg Config) (LogStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendNone:
		return nil, nil
	case BackendJSONL, "":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays, cfg.Compress)
		}
		return NewJSONLStore(cfg.Path)
	case BackendSQLite:
		if !strings.HasPrefix(cfg.Path, "file:") {
			if err := ensureDir(cfg.Path); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStore(cfg.Path)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown logging backend %q", cfg.Backend)
}
