package model

import (
	"bytes"
	"encoding/json"
)

// FeatureRow is the ordered feature tuple consumed by predictors. The field
// order matches the column order the models were trained on.
type FeatureRow struct {
	Year       int `json:"year"`
	Month      int `json:"month"`
	EntityCode int `json:"entity_code"`
}

// NewFeatureRow builds the row for one (period, entity) cell.
func NewFeatureRow(p Period, code int) FeatureRow {
	return FeatureRow{Year: p.Year, Month: p.Month, EntityCode: code}
}

// Vector returns the row as [year, month, entity_code].
func (r FeatureRow) Vector() []float64 {
	return []float64{float64(r.Year), float64(r.Month), float64(r.EntityCode)}
}

// PredictionResult holds the sanitized prediction for one cell.
type PredictionResult struct {
	Trips      float64 `json:"trips"`
	Passengers float64 `json:"passengers"`
}

// Add returns the element-wise sum.
func (r PredictionResult) Add(o PredictionResult) PredictionResult {
	return PredictionResult{Trips: r.Trips + o.Trips, Passengers: r.Passengers + o.Passengers}
}

// EntityPrediction is a prediction tagged with its entity.
type EntityPrediction struct {
	Entity  string `json:"entity"`
	Display string `json:"display,omitempty"`
	Code    int    `json:"code"`
	PredictionResult
}

// PeriodForecast is the forecast for one period. Prediction is set when a
// single entity was requested; PerEntity and Aggregate otherwise.
type PeriodForecast struct {
	Period     Period             `json:"period"`
	Prediction *PredictionResult  `json:"prediction,omitempty"`
	PerEntity  []EntityPrediction `json:"per_entity,omitempty"`
	Aggregate  *PredictionResult  `json:"aggregate,omitempty"`
}

// Entity returns the per-entity prediction for label.
func (pf PeriodForecast) Entity(label string) (EntityPrediction, bool) {
	for _, ep := range pf.PerEntity {
		if ep.Entity == label {
			return ep, true
		}
	}
	return EntityPrediction{}, false
}

// Value returns the single-entity prediction or the aggregate.
func (pf PeriodForecast) Value() PredictionResult {
	if pf.Prediction != nil {
		return *pf.Prediction
	}
	if pf.Aggregate != nil {
		return *pf.Aggregate
	}
	return PredictionResult{}
}

// ForecastResult is the ordered result of a forecast request.
type ForecastResult struct {
	Anchor        Period           `json:"anchor"`
	Horizon       int              `json:"horizon"`
	Entity        string           `json:"entity"`
	Display       string           `json:"display,omitempty"`
	BundleVersion string           `json:"bundle_version,omitempty"`
	Periods       []PeriodForecast `json:"-"`
}

// AllEntities reports whether the result covers the whole fleet.
func (r *ForecastResult) AllEntities() bool {
	return len(r.Periods) > 0 && r.Periods[0].Prediction == nil
}

// Lookup returns the forecast for period p.
func (r *ForecastResult) Lookup(p Period) (PeriodForecast, bool) {
	for _, pf := range r.Periods {
		if pf.Period == p {
			return pf, true
		}
	}
	return PeriodForecast{}, false
}

// Cells returns the number of (period, entity) cells in the result.
func (r *ForecastResult) Cells() int {
	n := 0
	for _, pf := range r.Periods {
		if pf.Prediction != nil {
			n++
			continue
		}
		n += len(pf.PerEntity)
	}
	return n
}

type forecastResultJSON struct {
	Anchor        Period          `json:"anchor"`
	Horizon       int             `json:"horizon"`
	Entity        string          `json:"entity"`
	Display       string          `json:"display,omitempty"`
	BundleVersion string          `json:"bundle_version,omitempty"`
	Order         []string        `json:"order"`
	Periods       json.RawMessage `json:"periods"`
}

// MarshalJSON renders periods as an object keyed by YYYY-MM, in order, with
// the key order repeated under "order" for clients whose maps are unordered.
func (r ForecastResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	order := make([]string, 0, len(r.Periods))
	buf.WriteByte('{')
	for i, pf := range r.Periods {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pf.Period.Key())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(pf)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
		order = append(order, pf.Period.Key())
	}
	buf.WriteByte('}')
	return json.Marshal(forecastResultJSON{
		Anchor:        r.Anchor,
		Horizon:       r.Horizon,
		Entity:        r.Entity,
		Display:       r.Display,
		BundleVersion: r.BundleVersion,
		Order:         order,
		Periods:       buf.Bytes(),
	})
}

// DayForecast is one row of a daily forecast.
type DayForecast struct {
	Date string `json:"date"`
	PeriodForecast
}
