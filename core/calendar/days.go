package calendar

import (
	"time"

	"github.com/kilianp07/fleetcast/core/model"
)

// DateLayout is the layout of dates accepted by the daily forecast.
const DateLayout = "2006-01-02"

// Day is one calendar date and the period it falls in.
type Day struct {
	Date   time.Time
	Period model.Period
}

// Key renders the date as YYYY-MM-DD.
func (d Day) Key() string { return d.Date.Format(DateLayout) }

// ExpandDays returns days consecutive dates starting at start. days is
// bounded like a horizon.
func (w Walker) ExpandDays(start time.Time, days int) ([]Day, error) {
	if err := w.CheckHorizon(days); err != nil {
		return nil, err
	}
	base := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]Day, 0, days)
	for i := 0; i < days; i++ {
		d := base.AddDate(0, 0, i)
		out = append(out, Day{Date: d, Period: Of(d)})
	}
	return out, nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
