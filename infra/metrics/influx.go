package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shopspring/decimal"

	"github.com/kilianp07/fleetcast/core/forecast"
	coremetrics "github.com/kilianp07/fleetcast/core/metrics"
	"github.com/kilianp07/fleetcast/infra/logger"
)

// InfluxSink writes forecast events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	// Values also writes one point per predicted cell.
	Values bool
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordForecast writes a forecast_request point and, when Values is set,
// one forecast_value point per cell of the result.
func (s *InfluxSink) RecordForecast(ev forecast.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome := ev.Outcome
	if outcome == "" {
		outcome = forecast.Outcome(ev.Err)
	}
	p := write.NewPointWithMeasurement("forecast_request").
		AddTag("kind", ev.Kind).
		AddTag("outcome", outcome).
		AddTag("entity", entityTag(ev.Entity)).
		AddTag("component", "forecast").
		AddField("request_id", ev.RequestID).
		AddField("anchor", ev.Anchor.Key()).
		AddField("horizon", ev.Horizon).
		AddField("cells", ev.Cells).
		AddField("latency_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	if ev.BundleVersion != "" {
		p = p.AddTag("bundle_version", ev.BundleVersion)
	}
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	if !s.Values || ev.Result == nil {
		return nil
	}
	pts := valuePoints(ev)
	if len(pts) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, pts...)
}

// valuePoints renders each cell as a point stamped at the first day of its period.
func valuePoints(ev forecast.Event) []*write.Point {
	var pts []*write.Point
	point := func(period time.Time, entity string, trips, passengers float64) *write.Point {
		return write.NewPointWithMeasurement("forecast_value").
			AddTag("entity", entity).
			AddTag("request_id", ev.RequestID).
			AddField("trips", trips).
			AddField("passengers", passengers).
			SetTime(period)
	}
	for _, pf := range ev.Result.Periods {
		ts := time.Date(pf.Period.Year, time.Month(pf.Period.Month), 1, 0, 0, 0, 0, time.UTC)
		if pf.Prediction != nil {
			pts = append(pts, point(ts, ev.Result.Entity, pf.Prediction.Trips, pf.Prediction.Passengers))
			continue
		}
		for _, ep := range pf.PerEntity {
			pts = append(pts, point(ts, ep.Entity, ep.Trips, ep.Passengers))
		}
	}
	return pts
}

// RecordBundleLoad writes a bundle_load point.
func (s *InfluxSink) RecordBundleLoad(ev coremetrics.BundleLoadEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status := "ok"
	errStr := ""
	if ev.Err != nil {
		status = "error"
		errStr = ev.Err.Error()
	}
	p := write.NewPointWithMeasurement("bundle_load").
		AddTag("status", status).
		AddTag("backend", ev.Backend).
		AddTag("component", "artifacts").
		AddField("version", ev.Version).
		AddField("source", ev.Source).
		AddField("entities", ev.Entities).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("errors", errStr).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func entityTag(entity string) string {
	if e := strings.TrimSpace(entity); e != "" {
		return e
	}
	return forecast.DefaultAllSentinel
}

func round3(f float64) float64 {
	return decimal.NewFromFloat(f).Round(3).InexactFloat64()
}
