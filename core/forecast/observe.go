package forecast

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetcast/core/model"
)

// Request kinds reported in events.
const (
	KindForecast = "forecast"
	KindPredict  = "predict"
	KindDays     = "days"
)

// Event describes one completed forecast call.
type Event struct {
	RequestID     string
	Kind          string
	Anchor        model.Period
	Horizon       int
	Entity        string
	Outcome       string
	Err           error
	Cells         int
	Duration      time.Duration
	BundleVersion string
	Result        *model.ForecastResult
	Time          time.Time
}

// Observer receives events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observed reports every call made through it to an Observer.
type Observed struct {
	next Forecaster
	obs  Observer
	now  func() time.Time
}

// NewObserved wraps next.
func NewObserved(next Forecaster, obs Observer) *Observed {
	return &Observed{next: next, obs: obs, now: time.Now}
}

func (o *Observed) emit(ctx context.Context, ev Event, start time.Time, err error) {
	if o.obs == nil {
		return
	}
	ev.RequestID = RequestIDFrom(ctx)
	if ev.RequestID == "" {
		ev.RequestID = uuid.NewString()
	}
	ev.Err = err
	ev.Outcome = Outcome(err)
	ev.Time = start
	ev.Duration = o.now().Sub(start)
	if ev.Result != nil {
		ev.Cells = ev.Result.Cells()
		ev.BundleVersion = ev.Result.BundleVersion
	}
	o.obs.Observe(ev)
}

// Forecast delegates and reports the call.
func (o *Observed) Forecast(ctx context.Context, anchor model.Period, horizon int, entity string) (*model.ForecastResult, error) {
	start := o.now()
	res, err := o.next.Forecast(ctx, anchor, horizon, entity)
	o.emit(ctx, Event{Kind: KindForecast, Anchor: anchor, Horizon: horizon, Entity: entity, Result: res}, start, err)
	return res, err
}

// Predict delegates and reports the call.
func (o *Observed) Predict(ctx context.Context, period model.Period, entity string) (*model.ForecastResult, error) {
	start := o.now()
	res, err := o.next.Predict(ctx, period, entity)
	o.emit(ctx, Event{Kind: KindPredict, Anchor: period, Horizon: 1, Entity: entity, Result: res}, start, err)
	return res, err
}

// ForecastDays delegates and reports the call.
func (o *Observed) ForecastDays(ctx context.Context, start time.Time, days int, entity string) ([]model.DayForecast, error) {
	t0 := o.now()
	res, err := o.next.ForecastDays(ctx, start, days, entity)
	ev := Event{Kind: KindDays, Anchor: model.Period{Year: start.Year(), Month: int(start.Month())}, Horizon: days, Entity: entity}
	if err == nil {
		for _, d := range res {
			if d.Prediction != nil {
				ev.Cells++
			} else {
				ev.Cells += len(d.PerEntity)
			}
		}
	}
	o.emit(ctx, ev, t0, err)
	return res, err
}
