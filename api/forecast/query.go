package forecast

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/fleetcast/core/calendar"
	"github.com/kilianp07/fleetcast/core/model"
)

var validate = validator.New()

// QueryError reports a malformed query parameter.
type QueryError struct {
	Param string
	Err   error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query parameter %s: %v", e.Param, e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

type forecastQuery struct {
	Year    int    `validate:"gte=1,lte=9999"`
	Month   int    `validate:"gte=1,lte=12"`
	Horizon int    // bounded by the orchestrator so the error carries the limit
	Entity  string `validate:"max=64"`
	Format  string `validate:"oneof=json csv html"`
}

type predictQuery struct {
	Year   int    `validate:"required,gte=1,lte=9999"`
	Month  int    `validate:"required,gte=1,lte=12"`
	Entity string `validate:"required,max=64"`
}

type daysQuery struct {
	Start  time.Time
	Days   int
	Entity string `validate:"max=64"`
	Format string `validate:"oneof=json csv"`
}

type logsQuery struct {
	Start   time.Time
	End     time.Time
	Entity  string `validate:"max=64"`
	Kind    string `validate:"omitempty,oneof=forecast predict days"`
	Outcome string `validate:"max=32"`
	Limit   int    `validate:"gte=0,lte=10000"`
}

func intParam(v url.Values, name string, def int) (int, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &QueryError{Param: name, Err: fmt.Errorf("%q is not an integer", s)}
	}
	return n, nil
}

// monthParam accepts a number or an English month name.
func monthParam(v url.Values, name string, def int) (int, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return def, nil
	}
	m, err := calendar.ParseMonth(s)
	if err != nil {
		return 0, &QueryError{Param: name, Err: err}
	}
	return m, nil
}

func timeParam(v url.Values, name string) (time.Time, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &QueryError{Param: name, Err: err}
	}
	return t, nil
}

// entityParam reads the entity from "entity" or its alias "bus".
func entityParam(v url.Values) string {
	if e := v.Get("entity"); e != "" {
		return e
	}
	return v.Get("bus")
}

func check(q any) error {
	if err := validate.Struct(q); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &QueryError{Param: strings.ToLower(fe.Field()), Err: fmt.Errorf("failed %s=%s", fe.Tag(), fe.Param())}
		}
		return err
	}
	return nil
}

func parseForecastQuery(v url.Values, now model.Period, defaultHorizon int) (forecastQuery, error) {
	var (
		q   forecastQuery
		err error
	)
	if q.Year, err = intParam(v, "year", now.Year); err != nil {
		return q, err
	}
	if q.Month, err = monthParam(v, "month", now.Month); err != nil {
		return q, err
	}
	if q.Horizon, err = intParam(v, "horizon", defaultHorizon); err != nil {
		return q, err
	}
	q.Entity = entityParam(v)
	q.Format = strings.ToLower(v.Get("format"))
	if q.Format == "" {
		q.Format = "json"
	}
	return q, check(q)
}

func parsePredictQuery(v url.Values) (predictQuery, error) {
	var (
		q   predictQuery
		err error
	)
	if q.Year, err = intParam(v, "year", 0); err != nil {
		return q, err
	}
	if q.Month, err = monthParam(v, "month", 0); err != nil {
		return q, err
	}
	q.Entity = entityParam(v)
	return q, check(q)
}

func parseDaysQuery(v url.Values, today time.Time) (daysQuery, error) {
	var (
		q   daysQuery
		err error
	)
	q.Start = today
	if s := strings.TrimSpace(v.Get("start_date")); s != "" {
		if q.Start, err = calendar.ParseDate(s); err != nil {
			return q, &QueryError{Param: "start_date", Err: err}
		}
	}
	if q.Days, err = intParam(v, "days", 7); err != nil {
		return q, err
	}
	q.Entity = entityParam(v)
	q.Format = strings.ToLower(v.Get("format"))
	if q.Format == "" {
		q.Format = "json"
	}
	return q, check(q)
}

func parseLogsQuery(v url.Values) (logsQuery, error) {
	var (
		q   logsQuery
		err error
	)
	if q.Start, err = timeParam(v, "start"); err != nil {
		return q, err
	}
	if q.End, err = timeParam(v, "end"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit", 0); err != nil {
		return q, err
	}
	q.Entity = entityParam(v)
	q.Kind = v.Get("kind")
	q.Outcome = v.Get("outcome")
	return q, check(q)
}
