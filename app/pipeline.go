package app

import (
	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/forecast"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/infra/artifacts"
	"github.com/kilianp07/fleetcast/infra/logger"
)

// Pipeline is the forecast stack shared by the server and the CLI.
type Pipeline struct {
	Holder       *artifact.Holder
	Loader       *artifacts.Loader
	Orchestrator *forecast.Orchestrator
	// Forecaster wraps Orchestrator with the cache and observer when
	// configured.
	Forecaster forecast.Forecaster
}

// NewPipeline builds the pipeline and loads the bundle once. The pipeline
// is returned even when the load fails: forecasts then fail with
// BackendUnavailableError until a later load succeeds.
func NewPipeline(cfg *config.Config, rec coremetrics.BundleLoadRecorder, obs forecast.Observer, log logger.Logger) (*Pipeline, error) {
	loader := artifacts.NewLoader(cfg.Artifacts.Path, artifacts.Defaults{
		Prefix:    cfg.Forecast.EntityPrefix,
		Decimals:  cfg.Forecast.Decimals,
		BatchSize: cfg.Forecast.BatchSize,
	}, artifacts.WithRecorder(rec), artifacts.WithLogger(log))
	holder := artifact.NewHolder(nil)
	orch := forecast.New(holder, cfg.Forecast.Orchestrator())

	var f forecast.Forecaster = orch
	if cfg.Forecast.CacheSize > 0 {
		f = forecast.NewCached(f, holder, cfg.Forecast.CacheSize, cfg.Forecast.CacheTTL)
	}
	if obs != nil {
		f = forecast.NewObserved(f, obs)
	}
	p := &Pipeline{Holder: holder, Loader: loader, Orchestrator: orch, Forecaster: f}
	return p, loader.LoadInto(holder)
}
