package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(2025, 12)
	require.NoError(t, err)
	assert.Equal(t, "2025-12", p.Key())

	for _, m := range []int{0, 13, -1} {
		_, err := NewPeriod(2025, m)
		var ip *InvalidPeriodError
		assert.ErrorAs(t, err, &ip)
	}
}

func TestParsePeriodKey(t *testing.T) {
	p, err := ParsePeriodKey(" 2024-03 ")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: 3}, p)

	for _, s := range []string{"2024", "2024-xx", "abcd-01", "2024-13"} {
		_, err := ParsePeriodKey(s)
		assert.Error(t, err, s)
	}
}

func TestPeriodOrdering(t *testing.T) {
	a := Period{Year: 2024, Month: 12}
	b := Period{Year: 2025, Month: 1}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, 1, a.MonthsUntil(b))
	assert.Equal(t, -13, b.MonthsUntil(Period{Year: 2023, Month: 12}))
}

func TestForecastResultJSON(t *testing.T) {
	one := PredictionResult{Trips: 5, Passengers: 10}
	res := ForecastResult{
		Anchor:  Period{Year: 2025, Month: 12},
		Horizon: 2,
		Entity:  "2",
		Periods: []PeriodForecast{
			{Period: Period{Year: 2025, Month: 12}, Prediction: &one},
			{Period: Period{Year: 2026, Month: 1}, Prediction: &one},
		},
	}
	data, err := json.Marshal(&res)
	require.NoError(t, err)

	var out struct {
		Entity  string                     `json:"entity"`
		Order   []string                   `json:"order"`
		Periods map[string]json.RawMessage `json:"periods"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2", out.Entity)
	assert.Equal(t, []string{"2025-12", "2026-01"}, out.Order)
	assert.Contains(t, string(out.Periods["2026-01"]), `"prediction":{"trips":5,"passengers":10}`)
	assert.NotContains(t, string(data), "per_entity")
	assert.Equal(t, 2, res.Cells())
}

func TestPeriodForecastAll(t *testing.T) {
	agg := PredictionResult{Trips: 3, Passengers: 4}
	pf := PeriodForecast{
		PerEntity: []EntityPrediction{
			{Entity: "1", PredictionResult: PredictionResult{Trips: 1, Passengers: 1}},
			{Entity: "2", PredictionResult: PredictionResult{Trips: 2, Passengers: 3}},
		},
		Aggregate: &agg,
	}
	ep, ok := pf.Entity("2")
	require.True(t, ok)
	assert.Equal(t, 2.0, ep.Trips)
	_, ok = pf.Entity("3")
	assert.False(t, ok)
	assert.Equal(t, agg, pf.Value())
	assert.Equal(t, agg, pf.PerEntity[0].Add(pf.PerEntity[1].PredictionResult))
}
