package config

import (
	"fmt"
	"time"
)

// ArtifactsConfig locates the artifact bundle file.
type ArtifactsConfig struct {
	Path     string        `json:"path"`
	Watch    bool          `json:"watch"`
	Debounce time.Duration `json:"debounce"`
}

// SetDefaults applies sane defaults.
func (c *ArtifactsConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "artifacts/bundle.yaml"
	}
}

// Validate checks mandatory fields.
func (c ArtifactsConfig) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	return nil
}
