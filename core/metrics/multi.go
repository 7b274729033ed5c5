package metrics

import (
	"errors"

	"github.com/kilianp07/fleetcast/core/forecast"
)

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordForecast forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordForecast(ev forecast.Event) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordForecast(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordBundleLoad forwards to sinks implementing BundleLoadRecorder.
func (m *MultiSink) RecordBundleLoad(ev BundleLoadEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(BundleLoadRecorder); ok {
			if err := rec.RecordBundleLoad(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordFleetSize forwards to sinks implementing FleetSizeRecorder.
func (m *MultiSink) RecordFleetSize(size int) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FleetSizeRecorder); ok {
			if err := rec.RecordFleetSize(size); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
