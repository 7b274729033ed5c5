package prediction

import (
	"context"

	"github.com/kilianp07/fleetcast/core/model"
)

// JointPredictor returns (trips, passengers) for each row in one call.
type JointPredictor interface {
	PredictJoint(ctx context.Context, rows []model.FeatureRow) ([][2]float64, error)
}

// TargetPredictor returns a single target value for each row.
type TargetPredictor interface {
	PredictTarget(ctx context.Context, rows []model.FeatureRow) ([]float64, error)
}

// Backend turns feature rows into sanitized predictions. The returned slice
// has the same length and order as rows.
type Backend interface {
	Predict(ctx context.Context, rows []model.FeatureRow) ([]model.PredictionResult, error)
}

// Checker is implemented by backends that can report whether they are usable.
type Checker interface {
	Check() error
}

// Describer is implemented by backends that expose a short kind name.
type Describer interface {
	Kind() string
}

// Pinger is implemented by backends backed by a remote service. Ping is more
// expensive than Check and is meant for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks b and, when supported, reaches its remote service.
func Ping(ctx context.Context, b Backend) error {
	if err := Check(b); err != nil {
		return err
	}
	if p, ok := b.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Check returns the availability error of b, if any. A nil backend is unavailable.
func Check(b Backend) error {
	if b == nil {
		return &BackendUnavailableError{Backend: "none", Cause: ErrNoBackend}
	}
	if c, ok := b.(Checker); ok {
		return c.Check()
	}
	return nil
}

// Kind returns the backend kind or "custom".
func Kind(b Backend) string {
	if d, ok := b.(Describer); ok {
		return d.Kind()
	}
	return "custom"
}
