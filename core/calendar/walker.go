package calendar

import (
	"fmt"
	"time"

	"github.com/kilianp07/fleetcast/core/model"
)

// DefaultMaxHorizon bounds the number of periods a single request may expand to.
const DefaultMaxHorizon = 60

// InvalidHorizonError is returned for non-positive horizons, horizons above
// the configured maximum and negative steps.
type InvalidHorizonError struct {
	Horizon int
	Max     int
	Reason  string
}

func (e *InvalidHorizonError) Error() string {
	if e.Max > 0 && e.Horizon > e.Max {
		return fmt.Sprintf("invalid horizon %d: exceeds maximum %d", e.Horizon, e.Max)
	}
	return fmt.Sprintf("invalid horizon %d: %s", e.Horizon, e.Reason)
}

// Advance shifts anchor forward by steps whole months.
func Advance(anchor model.Period, steps int) (model.Period, error) {
	if steps < 0 {
		return model.Period{}, &InvalidHorizonError{Horizon: steps, Reason: "negative step"}
	}
	if !anchor.Valid() {
		return model.Period{}, &model.InvalidPeriodError{Year: anchor.Year, Month: anchor.Month}
	}
	total := (anchor.Month - 1) + steps
	return model.Period{Year: anchor.Year + total/12, Month: total%12 + 1}, nil
}

// Walker expands an anchor into consecutive periods. The zero value has no
// upper bound on the horizon.
type Walker struct {
	MaxHorizon int
}

// NewWalker returns a walker bounded by maxHorizon; zero or negative values
// fall back to DefaultMaxHorizon.
func NewWalker(maxHorizon int) Walker {
	if maxHorizon <= 0 {
		maxHorizon = DefaultMaxHorizon
	}
	return Walker{MaxHorizon: maxHorizon}
}

// CheckHorizon validates horizon against the walker bounds.
func (w Walker) CheckHorizon(horizon int) error {
	if horizon <= 0 {
		return &InvalidHorizonError{Horizon: horizon, Max: w.MaxHorizon, Reason: "must be positive"}
	}
	if w.MaxHorizon > 0 && horizon > w.MaxHorizon {
		return &InvalidHorizonError{Horizon: horizon, Max: w.MaxHorizon, Reason: "too long"}
	}
	return nil
}

// Expand returns horizon periods starting at the anchor itself.
func (w Walker) Expand(anchor model.Period, horizon int) ([]model.Period, error) {
	if err := w.CheckHorizon(horizon); err != nil {
		return nil, err
	}
	out := make([]model.Period, 0, horizon)
	for i := 0; i < horizon; i++ {
		p, err := Advance(anchor, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Current returns the period containing now(). A nil clock uses time.Now.
func Current(now func() time.Time) model.Period {
	if now == nil {
		now = time.Now
	}
	t := now()
	return model.Period{Year: t.Year(), Month: int(t.Month())}
}

// Of returns the period containing t.
func Of(t time.Time) model.Period {
	return model.Period{Year: t.Year(), Month: int(t.Month())}
}
