package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/config"
	"github.com/kilianp07/fleetcast/core/factory"
	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/forecastlog"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/prediction"
	"github.com/kilianp07/fleetcast/infra/logger"
)

const bundle = `
version: test
labels: ["1", "2"]
backend:
  type: linear
  conf:
    trips: {intercept: -2020, year: 1}
    passengers: {month: 1}
`

func testConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	if body != "" {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	cfg := &config.Config{}
	cfg.Artifacts.Path = path
	cfg.Logging.Backend = forecastlog.BackendJSONL
	cfg.Logging.Path = filepath.Join(dir, "forecasts.jsonl")
	cfg.Server.Address = "127.0.0.1:0"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

type events struct {
	mu  sync.Mutex
	evs []forecast.Event
}

func (e *events) Observe(ev forecast.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evs = append(e.evs, ev)
}

func TestNewPipeline(t *testing.T) {
	cfg := testConfig(t, bundle)
	cfg.Forecast.CacheSize = 8
	obs := &events{}
	p, err := NewPipeline(cfg, nil, obs, logger.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, p.Holder.Current())

	anchor := model.Period{Year: 2025, Month: 10}
	res, err := p.Forecaster.Forecast(context.Background(), anchor, 3, "2")
	require.NoError(t, err)
	for i, pf := range res.Periods {
		assert.Equal(t, 5.0, pf.Prediction.Trips)
		assert.Equal(t, float64(10+i), pf.Prediction.Passengers)
	}
	_, err = p.Forecaster.Forecast(context.Background(), anchor, 3, "2")
	require.NoError(t, err)
	assert.Len(t, obs.evs, 2)
}

func TestNewPipeline_MissingBundle(t *testing.T) {
	p, err := NewPipeline(testConfig(t, ""), nil, nil, logger.NopLogger{})
	require.Error(t, err)
	require.NotNil(t, p)
	_, err = p.Forecaster.Forecast(context.Background(), model.Period{Year: 2025, Month: 1}, 1, "")
	var bu *prediction.BackendUnavailableError
	assert.ErrorAs(t, err, &bu)
}

func TestService_HandlerRecordsLogs(t *testing.T) {
	cfg := testConfig(t, bundle)
	cfg.Server.APIToken = "tok"
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	svc, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.bus.Subscribers() >= 2 }, 2*time.Second, 10*time.Millisecond)
	srv := httptest.NewServer(svc.Router(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/forecast?year=2025&month=10&horizon=2&entity=1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recs []forecastlog.LogRecord
	require.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/forecast/logs?entity=1", nil)
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		recs = nil
		return json.NewDecoder(resp.Body).Decode(&recs) == nil && len(recs) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, forecast.OutcomeOK, recs[0].Outcome)
	assert.Equal(t, 2, recs[0].Cells)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
	svc.Close()
}
