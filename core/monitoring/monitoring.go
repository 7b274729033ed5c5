package monitoring

import (
	"fmt"
	"time"

	"github.com/kilianp07/fleetcast/core/forecast"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if current != nil && err != nil {
		current.CaptureException(err, tags)
	}
}

// Recover reports a panic and re-panics. It must be deferred directly.
func Recover() {
	if r := recover(); r != nil {
		if current != nil {
			current.CapturePanic(r)
			current.Flush(2 * time.Second)
		}
		panic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	if current != nil {
		current.Flush(d)
	}
}

// ForecastObserver reports failed forecasts that were not caused by the
// request itself.
func ForecastObserver(m Monitor) forecast.ObserverFunc {
	return func(ev forecast.Event) {
		if ev.Err == nil || forecast.IsClientError(ev.Err) || m == nil {
			return
		}
		m.CaptureException(ev.Err, map[string]string{
			"kind":       ev.Kind,
			"outcome":    ev.Outcome,
			"request_id": ev.RequestID,
			"anchor":     ev.Anchor.Key(),
			"horizon":    fmt.Sprint(ev.Horizon),
		})
	}
}
