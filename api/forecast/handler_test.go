package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/encoder"
	coreforecast "github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/forecastlog"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/prediction"
	"github.com/kilianp07/fleetcast/infra/logger"
)

var october = func() time.Time { return time.Date(2025, 10, 30, 9, 0, 0, 0, time.UTC) }

func stubBundle(t *testing.T) *artifact.Bundle {
	t.Helper()
	enc, err := encoder.FromLabels([]string{"1", "2"})
	require.NoError(t, err)
	backend := prediction.NewJointBackend(prediction.JointFunc(func(r model.FeatureRow) (float64, float64) {
		return float64(r.Year % 10), float64(r.Month)
	}), prediction.WithKind("stub"))
	b, err := artifact.NewBundle(enc, backend, "v1")
	require.NoError(t, err)
	return b
}

func newTestServer(t *testing.T, src artifact.Source, opts ...Option) http.Handler {
	t.Helper()
	f := coreforecast.New(src, coreforecast.Config{MaxHorizon: 60})
	opts = append([]Option{WithClock(october), WithLogger(logger.NopLogger{})}, opts...)
	return NewRouter(NewHandler(f, src, opts...), nil)
}

func get(t *testing.T, h http.Handler, url string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestForecast_SingleEntity(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	rr := get(t, h, "/api/forecast?year=2025&month=10&horizon=3&entity=2")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decode(t, rr)
	assert.Equal(t, []any{"2025-10", "2025-11", "2025-12"}, out["order"])
	periods := out["periods"].(map[string]any)
	for i, key := range []string{"2025-10", "2025-11", "2025-12"} {
		p := periods[key].(map[string]any)["prediction"].(map[string]any)
		assert.Equal(t, 5.0, p["trips"])
		assert.Equal(t, float64(10+i), p["passengers"])
	}
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestForecast_Defaults(t *testing.T) {
	h := newTestServer(t, stubBundle(t), WithDefaultHorizon(2))
	rr := get(t, h, "/api/forecast?bus=Bus%201&month=oct")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decode(t, rr)
	assert.Equal(t, []any{"2025-10", "2025-11"}, out["order"])
	assert.Equal(t, "1", out["entity"])
}

func TestForecast_AllEntities(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	rr := get(t, h, "/api/forecast?year=2025&month=12&horizon=1")
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode(t, rr)["periods"].(map[string]any)["2025-12"].(map[string]any)
	assert.Len(t, p["per_entity"], 2)
	agg := p["aggregate"].(map[string]any)
	assert.Equal(t, 10.0, agg["trips"])
	assert.Equal(t, 24.0, agg["passengers"])
}

func TestForecast_CSVAndHTML(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	rr := get(t, h, "/api/forecast?year=2025&month=10&horizon=2&entity=2&format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2025-10,2,Bus 2,5,10", lines[1])

	rr = get(t, h, "/api/forecast?year=2025&month=10&horizon=2&entity=2&format=html")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<html")
}

func TestForecast_ClientErrors(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	cases := map[string]string{
		"/api/forecast?entity=9":                   coreforecast.OutcomeUnknownEntity,
		"/api/forecast?horizon=0":                  coreforecast.OutcomeInvalidHorizon,
		"/api/forecast?horizon=61":                 coreforecast.OutcomeInvalidHorizon,
		"/api/forecast?month=13":                   "bad_request",
		"/api/forecast?year=abc":                   "bad_request",
		"/api/forecast?format=xml":                 "bad_request",
		"/api/predict?year=2025&month=10":          "bad_request",
		"/api/forecast/days?start_date=2025-13-01": "bad_request",
		"/api/forecast/days?days=0":                coreforecast.OutcomeInvalidHorizon,
	}
	for url, code := range cases {
		rr := get(t, h, url)
		assert.Equal(t, http.StatusBadRequest, rr.Code, url)
		assert.Equal(t, code, decode(t, rr)["code"], url)
	}
}

func TestForecast_UnknownEntityListsKnown(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	out := decode(t, get(t, h, "/api/forecast?entity=Bus%209"))
	assert.Equal(t, []any{"1", "2"}, out["known_labels"])
}

func TestForecast_BackendUnavailable(t *testing.T) {
	enc, err := encoder.FromLabels([]string{"1"})
	require.NoError(t, err)
	b, err := artifact.NewBundle(enc, prediction.Unavailable("linear", errors.New("missing")), "v1")
	require.NoError(t, err)
	h := newTestServer(t, b)
	rr := get(t, h, "/api/forecast")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, coreforecast.OutcomeBackendUnavailable, decode(t, rr)["code"])

	rr = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "linear", decode(t, rr)["backend"])

	rr = get(t, h, "/api/forecast?horizon=0")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, coreforecast.OutcomeInvalidHorizon, decode(t, rr)["code"])

	rr = get(t, h, "/api/forecast/days?days=0")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPredict(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	rr := get(t, h, "/api/predict?year=2026&month=March&bus=2")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p := decode(t, rr)["periods"].(map[string]any)["2026-03"].(map[string]any)["prediction"].(map[string]any)
	assert.Equal(t, 6.0, p["trips"])
	assert.Equal(t, 3.0, p["passengers"])
}

func TestDays(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	rr := get(t, h, "/api/forecast/days?days=3&bus=1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decode(t, rr)
	assert.Equal(t, "2025-10-30", out["start_date"])
	values := out["values"].([]any)
	require.Len(t, values, 3)
	assert.Equal(t, "2025-11-01", values[2].(map[string]any)["date"])

	rr = get(t, h, "/api/forecast/days?start_date=2025-12-31&days=2&bus=1&format=csv")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2026-01-01,1,,6,1")
}

func TestEntities(t *testing.T) {
	h := newTestServer(t, stubBundle(t))
	rr := get(t, h, "/api/entities")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, 2.0, out["count"])
	first := out["entities"].([]any)[0].(map[string]any)
	assert.Equal(t, "1", first["label"])
	assert.Equal(t, "Bus 1", first["display"])

	rr = get(t, newTestServer(t, artifact.NewHolder(nil)), "/api/entities")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealth(t *testing.T) {
	rr := get(t, newTestServer(t, stubBundle(t)), "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	out := decode(t, rr)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "stub", out["backend"])
	assert.Equal(t, "v1", out["bundle_version"])

	rr = get(t, newTestServer(t, artifact.NewHolder(nil)), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

type memStore struct {
	recs []forecastlog.LogRecord
	err  error
}

func (m *memStore) Append(_ context.Context, r forecastlog.LogRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q forecastlog.LogQuery) ([]forecastlog.LogRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var res []forecastlog.LogRecord
	for _, r := range m.recs {
		if q.Matches(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogs_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	now := time.Now().UTC()
	_ = store.Append(context.Background(), forecastlog.LogRecord{Timestamp: now, Kind: coreforecast.KindForecast, Entity: "1", Outcome: "ok"})
	_ = store.Append(context.Background(), forecastlog.LogRecord{Timestamp: now, Kind: coreforecast.KindPredict, Entity: "2", Outcome: "ok"})
	h := newTestServer(t, stubBundle(t), WithLogStore(store, "tok"))

	rr := get(t, h, "/api/forecast/logs")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	for _, auth := range []string{"Bearer tokx", "Bearer to", "tok", "Basic tok", "bearer tok"} {
		rr = get(t, h, "/api/forecast/logs", "Authorization", auth)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, auth)
	}

	rr = get(t, h, "/api/forecast/logs?entity=Bus%202", "Authorization", "Bearer tok")
	require.Equal(t, http.StatusOK, rr.Code)
	var recs []forecastlog.LogRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "2", recs[0].Entity)

	rr = get(t, h, "/api/forecast/logs?kind=nope", "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = get(t, h, "/api/forecast/logs?start=yesterday", "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogs_Disabled(t *testing.T) {
	rr := get(t, newTestServer(t, stubBundle(t)), "/api/forecast/logs")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLogs_StoreError(t *testing.T) {
	h := newTestServer(t, stubBundle(t), WithLogStore(&memStore{err: errors.New("disk")}, ""))
	rr := get(t, h, "/api/forecast/logs")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	f := coreforecast.NewObserved(coreforecast.New(stubBundle(t), coreforecast.Config{}), coreforecast.ObserverFunc(func(ev coreforecast.Event) {
		seen = ev.RequestID
	}))
	h := NewRouter(NewHandler(f, stubBundle(t), WithClock(october), WithLogger(logger.NopLogger{})), nil)
	rr := get(t, h, "/api/predict?year=2025&month=1&bus=1", "X-Request-Id", "req-42")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "req-42", seen)
}

func TestMetricsMounted(t *testing.T) {
	f := coreforecast.New(stubBundle(t), coreforecast.Config{})
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	h := NewRouter(NewHandler(f, stubBundle(t), WithLogger(logger.NopLogger{})), metrics)
	rr := get(t, h, "/metrics")
	assert.Equal(t, "# metrics", rr.Body.String())
}
