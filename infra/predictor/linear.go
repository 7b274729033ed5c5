package predictor

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/fleetcast/core/model"
)

// Coefficients describes one linear target:
//
//	y = intercept + year*Year + month*Month + entity*EntityCode
//	    + Seasonal[month-1] + EntityOffsets[code]
//
// Seasonal and EntityOffsets are optional.
type Coefficients struct {
	Intercept     float64   `json:"intercept"`
	Year          float64   `json:"year"`
	Month         float64   `json:"month"`
	Entity        float64   `json:"entity"`
	Seasonal      []float64 `json:"seasonal"`
	EntityOffsets []float64 `json:"entity_offsets"`
}

// Validate checks the optional vectors.
func (c Coefficients) Validate(entities int) error {
	if len(c.Seasonal) != 0 && len(c.Seasonal) != 12 {
		return fmt.Errorf("seasonal must have 12 values, got %d", len(c.Seasonal))
	}
	if len(c.EntityOffsets) != 0 && entities > 0 && len(c.EntityOffsets) != entities {
		return fmt.Errorf("entity_offsets must have %d values, got %d", entities, len(c.EntityOffsets))
	}
	return nil
}

func (c Coefficients) weights() []float64 {
	return []float64{c.Year, c.Month, c.Entity}
}

// offset returns the per-row additive terms.
func (c Coefficients) offset(r model.FeatureRow) float64 {
	v := c.Intercept
	if len(c.Seasonal) == 12 && r.Month >= 1 && r.Month <= 12 {
		v += c.Seasonal[r.Month-1]
	}
	if r.EntityCode >= 0 && r.EntityCode < len(c.EntityOffsets) {
		v += c.EntityOffsets[r.EntityCode]
	}
	return v
}

// design returns the n x 3 feature matrix of rows.
func design(rows []model.FeatureRow) *mat.Dense {
	x := mat.NewDense(len(rows), 3, nil)
	for i, r := range rows {
		x.SetRow(i, r.Vector())
	}
	return x
}

// Linear evaluates both targets with one matrix product. It implements
// prediction.JointPredictor.
type Linear struct {
	Trips      Coefficients
	Passengers Coefficients
	w          *mat.Dense
}

// NewLinear builds a joint linear model.
func NewLinear(trips, passengers Coefficients) *Linear {
	w := mat.NewDense(3, 2, nil)
	w.SetCol(0, trips.weights())
	w.SetCol(1, passengers.weights())
	return &Linear{Trips: trips, Passengers: passengers, w: w}
}

// PredictJoint returns X*W plus the per-row offsets.
func (l *Linear) PredictJoint(ctx context.Context, rows []model.FeatureRow) ([][2]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var y mat.Dense
	y.Mul(design(rows), l.w)
	out := make([][2]float64, len(rows))
	for i, r := range rows {
		out[i] = [2]float64{
			y.At(i, 0) + l.Trips.offset(r),
			y.At(i, 1) + l.Passengers.offset(r),
		}
	}
	return out, nil
}

// LinearTarget evaluates a single target. It implements
// prediction.TargetPredictor.
type LinearTarget struct {
	Coefficients
	w *mat.VecDense
}

// NewLinearTarget builds a single-target linear model.
func NewLinearTarget(c Coefficients) *LinearTarget {
	return &LinearTarget{Coefficients: c, w: mat.NewVecDense(3, c.weights())}
}

// PredictTarget returns X*w plus the per-row offsets.
func (l *LinearTarget) PredictTarget(ctx context.Context, rows []model.FeatureRow) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var y mat.VecDense
	y.MulVec(design(rows), l.w)
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y.AtVec(i) + l.offset(r)
	}
	return out, nil
}
