package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/fleetcast/core/forecast"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordForecast(forecast.Event) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordFleetSize(int) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordForecast(forecast.Event{Kind: forecast.KindForecast}); err != nil {
		t.Fatalf("record forecast: %v", err)
	}
	if err := m.RecordFleetSize(3); err != nil {
		t.Fatalf("record fleet size: %v", err)
	}
	if err := m.RecordBundleLoad(BundleLoadEvent{Version: "v1"}); err != nil {
		t.Fatalf("record bundle load: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded: %d %d", s1.count, s2.count)
	}
}

func TestMultiSink_ContinuesAfterError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordForecast(forecast.Event{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.count != 1 {
		t.Fatalf("second sink skipped")
	}
}

type closingSink struct {
	NopSink
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSink_Close(t *testing.T) {
	c := &closingSink{}
	NewMultiSink(&recordSink{}, c).Close()
	if !c.closed {
		t.Fatal("sink not closed")
	}
}
