package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/fleetcast/core/forecast"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/core/model"
)

func captureServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, strings.TrimSpace(string(b)))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestInfluxSink_RecordForecast(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := forecast.Event{
		RequestID:     "r1",
		Kind:          forecast.KindForecast,
		Anchor:        model.Period{Year: 2025, Month: 10},
		Horizon:       3,
		Entity:        "2",
		Outcome:       forecast.OutcomeOK,
		Cells:         3,
		Duration:      1500 * time.Microsecond,
		BundleVersion: "v1",
		Time:          now,
	}
	if err := sink.RecordForecast(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("forecast_request").
		AddTag("kind", "forecast").
		AddTag("outcome", "ok").
		AddTag("entity", "2").
		AddTag("component", "forecast").
		AddField("request_id", "r1").
		AddField("anchor", "2025-10").
		AddField("horizon", 3).
		AddField("cells", 3).
		AddField("latency_ms", 1.5).
		SetTime(now).
		AddTag("bundle_version", "v1")
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(*bodies) != 1 || (*bodies)[0] != exp {
		t.Errorf("bodies: %#v", *bodies)
	}
}

func TestInfluxSink_RecordForecastValues(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	sink.Values = true
	one := model.PredictionResult{Trips: 5, Passengers: 10}
	ev := forecast.Event{
		RequestID: "r2",
		Kind:      forecast.KindForecast,
		Outcome:   forecast.OutcomeOK,
		Time:      time.Now(),
		Result: &model.ForecastResult{
			Entity: "all",
			Periods: []model.PeriodForecast{{
				Period:    model.Period{Year: 2025, Month: 10},
				PerEntity: []model.EntityPrediction{{Entity: "1", PredictionResult: one}, {Entity: "2", PredictionResult: one}},
				Aggregate: &model.PredictionResult{Trips: 10, Passengers: 20},
			}},
		},
	}
	if err := sink.RecordForecast(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(*bodies) != 2 {
		t.Fatalf("expected request and value writes, got %d", len(*bodies))
	}
	lines := strings.Split((*bodies)[1], "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per entity, got %q", (*bodies)[1])
	}
	for _, want := range []string{"forecast_value,", "entity=1", "request_id=r2", "trips=5", "passengers=10"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("line %q missing %q", lines[0], want)
		}
	}
}

func TestInfluxSink_RecordBundleLoad(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.BundleLoadEvent{Version: "v2", Source: "bundle.yaml", Backend: "linear", Err: errors.New("bad"), Time: now}
	if err := sink.RecordBundleLoad(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(*bodies) != 1 {
		t.Fatalf("bodies: %#v", *bodies)
	}
	for _, want := range []string{"bundle_load,", "status=error", "backend=linear", `version="v2"`, `errors="bad"`} {
		if !strings.Contains((*bodies)[0], want) {
			t.Errorf("body %q missing %q", (*bodies)[0], want)
		}
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
