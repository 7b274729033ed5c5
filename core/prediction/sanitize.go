package prediction

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/fleetcast/core/model"
)

// OutputContract declares how raw predictor outputs are presented.
// Decimals is the number of fractional digits kept: 0 rounds to whole
// counts, a negative value keeps the raw value.
type OutputContract struct {
	Decimals int `json:"decimals"`
}

// Sanitize floors NaN, infinite and negative values at zero and rounds the
// rest half away from zero.
func (c OutputContract) Sanitize(v float64) float64 {
	if !(v > 0) || math.IsInf(v, 1) {
		return 0
	}
	if c.Decimals < 0 {
		return v
	}
	return decimal.NewFromFloat(v).Round(int32(c.Decimals)).InexactFloat64()
}

// Result builds a sanitized PredictionResult.
func (c OutputContract) Result(trips, passengers float64) model.PredictionResult {
	return model.PredictionResult{Trips: c.Sanitize(trips), Passengers: c.Sanitize(passengers)}
}
