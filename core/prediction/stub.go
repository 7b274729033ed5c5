package prediction

import (
	"context"

	"github.com/kilianp07/fleetcast/core/model"
)

// JointFunc adapts a per-row function to JointPredictor. It is used for
// deterministic stubs in tests and dry runs.
type JointFunc func(row model.FeatureRow) (trips, passengers float64)

// PredictJoint applies f to every row.
func (f JointFunc) PredictJoint(ctx context.Context, rows []model.FeatureRow) ([][2]float64, error) {
	out := make([][2]float64, len(rows))
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, p := f(r)
		out[i] = [2]float64{t, p}
	}
	return out, nil
}

// TargetFunc adapts a per-row function to TargetPredictor.
type TargetFunc func(row model.FeatureRow) float64

// PredictTarget applies f to every row.
func (f TargetFunc) PredictTarget(ctx context.Context, rows []model.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = f(r)
	}
	return out, nil
}
