package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/fleetcast/api/forecast"
	"github.com/kilianp07/fleetcast/config"
	coreforecast "github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/forecastlog"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	coremon "github.com/kilianp07/fleetcast/core/monitoring"
	"github.com/kilianp07/fleetcast/infra/artifacts"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/infra/metrics"
	infmon "github.com/kilianp07/fleetcast/infra/monitoring"
	"github.com/kilianp07/fleetcast/infra/mqtt"
	"github.com/kilianp07/fleetcast/internal/eventbus"
)

// Service wires the forecast pipeline to its surrounding layers: HTTP API,
// metrics sinks, the audit log, MQTT and error monitoring.
type Service struct {
	cfg      *config.Config
	Pipeline *Pipeline
	bus      *eventbus.TypedBus[coreforecast.Event]
	sink     coremetrics.MetricsSink
	store    forecastlog.LogStore
	mqtt     *mqtt.PahoClient
	pub      *mqtt.ForecastPublisher
	log      logger.Logger
}

// New creates a Service from the configuration. A bundle that fails to load
// is logged, not fatal: the API reports 503 until a reload succeeds.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	var mon coremon.Monitor = coremon.NopMonitor{}
	if cfg.Sentry.DSN != "" {
		m, err := infmon.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		mon = m
		coremon.Init(mon)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	store, err := forecastlog.NewStore(ctx, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("forecast log: %w", err)
	}

	bus := eventbus.NewTyped[coreforecast.Event]()
	monitor := coremon.ForecastObserver(mon)
	obs := coreforecast.ObserverFunc(func(ev coreforecast.Event) {
		bus.Observe(ev)
		monitor(ev)
	})

	var rec coremetrics.BundleLoadRecorder
	if r, ok := sink.(coremetrics.BundleLoadRecorder); ok {
		rec = r
	}
	p, err := NewPipeline(cfg, rec, obs, logger.New("artifacts"))
	if err != nil {
		log.Errorf("initial bundle load: %v", err)
	}

	svc := &Service{cfg: cfg, Pipeline: p, bus: bus, sink: sink, store: store, log: log}
	if cfg.MQTT.Enabled {
		if err := svc.connectMQTT(); err != nil {
			svc.Close()
			return nil, err
		}
	}
	return svc, nil
}

func (s *Service) connectMQTT() error {
	client, err := mqtt.NewPahoClient(s.cfg.MQTT, nil)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	s.mqtt = client
	s.pub = mqtt.NewForecastPublisher(client, s.cfg.MQTT.TopicPrefix)
	if s.cfg.MQTT.Requests {
		rh := mqtt.NewRequestHandler(s.Pipeline.Forecaster, s.pub, s.cfg.Forecast.DefaultHorizon)
		if err := client.Subscribe(rh.Topic(), rh.OnMessage); err != nil {
			return fmt.Errorf("mqtt subscribe %s: %w", rh.Topic(), err)
		}
	}
	return nil
}

// Handler builds the HTTP handler. /metrics is mounted when a Prometheus
// sink is configured without a dedicated port.
func (s *Service) Handler() *forecast.Handler {
	opts := []forecast.Option{
		forecast.WithDefaultHorizon(s.cfg.Forecast.DefaultHorizon),
		forecast.WithLogger(logger.New("api")),
	}
	if s.store != nil {
		opts = append(opts, forecast.WithLogStore(s.store, s.cfg.Server.APIToken))
	}
	return forecast.NewHandler(s.Pipeline.Forecaster, s.Pipeline.Holder, opts...)
}

// Router returns the HTTP routes. metrics, when non-nil, is served on /metrics.
func (s *Service) Router(metricsHandler http.Handler) http.Handler {
	return forecast.NewRouter(s.Handler(), metricsHandler)
}

func (s *Service) promEnabled() bool {
	for _, m := range s.cfg.Metrics.Sinks {
		if m.Type == "prometheus" {
			return true
		}
	}
	return false
}

// Run starts every component and blocks until ctx is canceled or the HTTP
// server fails.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	recorderDone := forecastlog.StartRecorder(ctx, s.bus, s.store, logger.New("forecastlog"))
	if s.pub != nil {
		s.pub.Start(ctx, s.bus)
	}

	var wg sync.WaitGroup
	if s.cfg.Artifacts.Watch {
		w := artifacts.NewWatcher(s.Pipeline.Loader, s.Pipeline.Holder, s.cfg.Artifacts.Debounce)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				s.log.Errorf("artifact watcher: %v", err)
			}
		}()
	}

	var promHandler http.Handler
	switch {
	case !s.promEnabled():
	case s.cfg.Metrics.PrometheusPort == "":
		promHandler = metrics.Handler(nil)
	default:
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	err := forecast.Serve(ctx, forecast.ServerConfig{
		Addr:         s.cfg.Server.Address,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}, s.Router(promHandler), logger.New("http"))
	cancel()
	wg.Wait()
	<-recorderDone
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Warnf("close forecast log: %v", err)
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	s.bus.Close()
	coremon.Flush(2 * time.Second)
}
