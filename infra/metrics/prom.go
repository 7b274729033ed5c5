package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/fleetcast/core/forecast"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
)

// PromSink records forecast activity in Prometheus metrics.
type PromSink struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	cells    *prometheus.CounterVec
	loads    *prometheus.CounterVec
	fleet    prometheus.Gauge
}

// NewPromSink registers forecast metrics on the default Prometheus registerer.
// The metrics endpoint is served separately, see StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_requests_total",
		Help: "Total number of forecast requests by kind and outcome",
	}, []string{"kind", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_latency_seconds",
		Help:    "Time spent producing a forecast",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	cells := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_cells_total",
		Help: "Number of (period, entity) cells predicted",
	}, []string{"kind"})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_bundle_loads_total",
		Help: "Artifact bundle load attempts by outcome",
	}, []string{"outcome"})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forecast_fleet_entities",
		Help: "Number of entities known to the loaded encoder",
	})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if cells, err = register(reg, cells); err != nil {
		return nil, err
	}
	if loads, err = register(reg, loads); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	return &PromSink{requests: requests, latency: latency, cells: cells, loads: loads, fleet: fleet}, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordForecast counts the request and observes its latency.
func (s *PromSink) RecordForecast(ev forecast.Event) error {
	outcome := ev.Outcome
	if outcome == "" {
		outcome = forecast.Outcome(ev.Err)
	}
	s.requests.WithLabelValues(ev.Kind, outcome).Inc()
	s.latency.WithLabelValues(ev.Kind).Observe(ev.Duration.Seconds())
	if ev.Cells > 0 {
		s.cells.WithLabelValues(ev.Kind).Add(float64(ev.Cells))
	}
	return nil
}

// RecordBundleLoad counts load attempts and updates the fleet gauge on success.
func (s *PromSink) RecordBundleLoad(ev coremetrics.BundleLoadEvent) error {
	if ev.Err != nil {
		s.loads.WithLabelValues("error").Inc()
		return nil
	}
	s.loads.WithLabelValues("ok").Inc()
	return s.RecordFleetSize(ev.Entities)
}

// RecordFleetSize sets the gauge to the number of known entities.
func (s *PromSink) RecordFleetSize(size int) error {
	if s.fleet != nil {
		s.fleet.Set(float64(size))
	}
	return nil
}
