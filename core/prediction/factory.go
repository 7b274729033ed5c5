package prediction

import (
	"fmt"

	"github.com/kilianp07/fleetcast/core/factory"
)

var backendRegistry = factory.NewRegistry[Backend]()

// RegisterBackend adds a backend factory identified by name.
func RegisterBackend(name string, f factory.Factory[Backend]) error {
	return backendRegistry.Register(name, f)
}

// NewBackend builds the backend described by cfg.
func NewBackend(cfg factory.ModuleConfig) (Backend, error) {
	if cfg.Type == "" {
		return nil, ErrNoBackend
	}
	b, err := backendRegistry.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Type, err)
	}
	return b, nil
}

// BackendTypes lists the registered backend types.
func BackendTypes() []string { return backendRegistry.Names() }
