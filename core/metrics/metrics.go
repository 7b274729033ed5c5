package metrics

import (
	"time"

	"github.com/kilianp07/fleetcast/core/forecast"
)

// MetricsSink records completed forecast requests.
type MetricsSink interface {
	RecordForecast(ev forecast.Event) error
}

// BundleLoadEvent describes one artifact bundle load attempt.
type BundleLoadEvent struct {
	Version  string
	Source   string
	Backend  string
	Entities int
	Err      error
	Duration time.Duration
	Time     time.Time
}

// BundleLoadRecorder records artifact loads and reloads.
type BundleLoadRecorder interface {
	RecordBundleLoad(ev BundleLoadEvent) error
}

// FleetSizeRecorder records the number of entities known to the encoder.
type FleetSizeRecorder interface {
	RecordFleetSize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordForecast(forecast.Event) error    { return nil }
func (NopSink) RecordBundleLoad(BundleLoadEvent) error { return nil }
func (NopSink) RecordFleetSize(int) error              { return nil }
