package forecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/calendar"
	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/prediction"
)

// DefaultAllSentinel selects every entity.
const DefaultAllSentinel = "all"

// Forecaster is implemented by the Orchestrator and its decorators.
type Forecaster interface {
	Forecast(ctx context.Context, anchor model.Period, horizon int, entity string) (*model.ForecastResult, error)
	Predict(ctx context.Context, period model.Period, entity string) (*model.ForecastResult, error)
	ForecastDays(ctx context.Context, start time.Time, days int, entity string) ([]model.DayForecast, error)
}

// Config bounds requests and names the all-entities sentinel.
type Config struct {
	MaxHorizon  int    `json:"max_horizon"`
	AllSentinel string `json:"all_sentinel"`
}

// Orchestrator produces forecasts from the bundle provided by its source.
type Orchestrator struct {
	src    artifact.Source
	walker calendar.Walker
	all    string
}

// New returns an orchestrator reading bundles from src.
func New(src artifact.Source, cfg Config) *Orchestrator {
	all := strings.TrimSpace(cfg.AllSentinel)
	if all == "" {
		all = DefaultAllSentinel
	}
	return &Orchestrator{src: src, walker: calendar.NewWalker(cfg.MaxHorizon), all: all}
}

// IsAll reports whether entity selects the whole fleet.
func (o *Orchestrator) IsAll(entity string) bool {
	e := strings.TrimSpace(entity)
	return e == "" || strings.EqualFold(e, o.all)
}

// MaxHorizon returns the configured horizon bound.
func (o *Orchestrator) MaxHorizon() int { return o.walker.MaxHorizon }

// Forecast predicts horizon periods starting at anchor for one entity, or for
// every entity when entity is empty or the all sentinel. The horizon is checked
// before the bundle so a bad request is reported as such during an outage.
func (o *Orchestrator) Forecast(ctx context.Context, anchor model.Period, horizon int, entity string) (*model.ForecastResult, error) {
	periods, err := o.walker.Expand(anchor, horizon)
	if err != nil {
		return nil, err
	}
	b, err := o.snapshot()
	if err != nil {
		return nil, err
	}
	tgt, err := o.resolve(b.Encoder, entity)
	if err != nil {
		return nil, err
	}
	pfs, err := o.predictPeriods(ctx, b, periods, tgt)
	if err != nil {
		return nil, err
	}
	return &model.ForecastResult{
		Anchor:        anchor,
		Horizon:       horizon,
		Entity:        tgt.name,
		Display:       tgt.display,
		BundleVersion: b.Version,
		Periods:       pfs,
	}, nil
}

// Predict forecasts a single period.
func (o *Orchestrator) Predict(ctx context.Context, period model.Period, entity string) (*model.ForecastResult, error) {
	return o.Forecast(ctx, period, 1, entity)
}

// ForecastDays forecasts days consecutive dates from start. Each date uses
// the features of the month it falls in; each month is predicted once.
func (o *Orchestrator) ForecastDays(ctx context.Context, start time.Time, days int, entity string) ([]model.DayForecast, error) {
	ds, err := o.walker.ExpandDays(start, days)
	if err != nil {
		return nil, err
	}
	b, err := o.snapshot()
	if err != nil {
		return nil, err
	}
	tgt, err := o.resolve(b.Encoder, entity)
	if err != nil {
		return nil, err
	}
	var periods []model.Period
	for _, d := range ds {
		if len(periods) == 0 || periods[len(periods)-1] != d.Period {
			periods = append(periods, d.Period)
		}
	}
	pfs, err := o.predictPeriods(ctx, b, periods, tgt)
	if err != nil {
		return nil, err
	}
	byPeriod := make(map[model.Period]model.PeriodForecast, len(pfs))
	for _, pf := range pfs {
		byPeriod[pf.Period] = pf
	}
	out := make([]model.DayForecast, 0, len(ds))
	for _, d := range ds {
		out = append(out, model.DayForecast{Date: d.Key(), PeriodForecast: byPeriod[d.Period]})
	}
	return out, nil
}

// Entities returns the canonical labels of the current bundle.
func (o *Orchestrator) Entities() ([]string, error) {
	b := o.src.Current()
	if b == nil {
		return nil, artifact.ErrNoBundle
	}
	return b.Encoder.Labels(), nil
}

func (o *Orchestrator) snapshot() (*artifact.Bundle, error) {
	b := o.src.Current()
	if b == nil {
		return nil, &prediction.BackendUnavailableError{Backend: "none", Cause: artifact.ErrNoBundle}
	}
	if err := prediction.Check(b.Backend); err != nil {
		return nil, err
	}
	return b, nil
}

type target struct {
	name     string
	display  string
	all      bool
	labels   []string
	displays []string
	codes    []int
}

func (o *Orchestrator) resolve(enc *encoder.Encoder, entity string) (target, error) {
	if o.IsAll(entity) {
		labels := enc.Labels()
		t := target{name: o.all, all: true, labels: labels, codes: make([]int, len(labels)), displays: make([]string, len(labels))}
		for i, l := range labels {
			t.codes[i] = i
			t.displays[i] = enc.Display(l)
		}
		return t, nil
	}
	label, code, err := enc.Resolve(entity)
	if err != nil {
		return target{}, err
	}
	d := enc.Display(label)
	return target{name: label, display: d, labels: []string{label}, displays: []string{d}, codes: []int{code}}, nil
}

// predictPeriods issues one backend call for every (period, entity) cell,
// period-major, and folds the results back per period.
func (o *Orchestrator) predictPeriods(ctx context.Context, b *artifact.Bundle, periods []model.Period, tgt target) ([]model.PeriodForecast, error) {
	width := len(tgt.codes)
	rows := make([]model.FeatureRow, 0, len(periods)*width)
	for _, p := range periods {
		for _, code := range tgt.codes {
			rows = append(rows, model.NewFeatureRow(p, code))
		}
	}
	preds, err := b.Backend.Predict(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("%s: %w: got %d predictions for %d rows",
			prediction.Kind(b.Backend), prediction.ErrOutputShape, len(preds), len(rows))
	}
	out := make([]model.PeriodForecast, len(periods))
	for i, p := range periods {
		cells := preds[i*width : (i+1)*width]
		pf := model.PeriodForecast{Period: p}
		if !tgt.all {
			r := cells[0]
			pf.Prediction = &r
			out[i] = pf
			continue
		}
		var agg model.PredictionResult
		pf.PerEntity = make([]model.EntityPrediction, width)
		for j, c := range cells {
			pf.PerEntity[j] = model.EntityPrediction{
				Entity:           tgt.labels[j],
				Display:          tgt.displays[j],
				Code:             tgt.codes[j],
				PredictionResult: c,
			}
			agg = agg.Add(c)
		}
		pf.Aggregate = &agg
		out[i] = pf
	}
	return out, nil
}
