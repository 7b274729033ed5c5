// Package forecastlog keeps an audit trail of forecast requests. Each record
// captures the request, its outcome and, for successful calls, the returned
// periods. Stores exist for JSONL files (optionally rotated), SQLite and
// PostgreSQL.
package forecastlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kilianp07/fleetcast/core/encoder"
	"github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/model"
)

// ErrClosed is returned when appending to a closed store.
var ErrClosed = errors.New("forecast log store closed")

// LogRecord captures one forecast request and its result.
type LogRecord struct {
	Timestamp     time.Time              `json:"timestamp"`
	RequestID     string                 `json:"request_id"`
	Kind          string                 `json:"kind"`
	Anchor        model.Period           `json:"anchor"`
	Horizon       int                    `json:"horizon"`
	Entity        string                 `json:"entity"`
	Outcome       string                 `json:"outcome"`
	Error         string                 `json:"error,omitempty"`
	BundleVersion string                 `json:"bundle_version,omitempty"`
	Cells         int                    `json:"cells"`
	LatencyMS     float64                `json:"latency_ms"`
	Periods       []model.PeriodForecast `json:"periods,omitempty"`
}

// LogQuery defines filters for retrieving records. Zero values match all.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	Entity  string
	Kind    string
	Outcome string
	Limit   int
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// RecordFromEvent converts a forecast event into a LogRecord.
func RecordFromEvent(ev forecast.Event) LogRecord {
	rec := LogRecord{
		Timestamp:     ev.Time.UTC(),
		RequestID:     ev.RequestID,
		Kind:          ev.Kind,
		Anchor:        ev.Anchor,
		Horizon:       ev.Horizon,
		Entity:        encoder.Normalize(ev.Entity),
		Outcome:       ev.Outcome,
		BundleVersion: ev.BundleVersion,
		Cells:         ev.Cells,
		LatencyMS:     float64(ev.Duration.Microseconds()) / 1000,
	}
	if rec.Outcome == "" {
		rec.Outcome = forecast.Outcome(ev.Err)
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	if ev.Result != nil {
		rec.Entity = ev.Result.Entity
		rec.Periods = ev.Result.Periods
	}
	return rec
}

// normalizedEntity is the form entity filters are compared in.
func (q LogQuery) normalizedEntity() string {
	return encoder.Normalize(q.Entity)
}

// Matches reports whether rec passes every filter of q.
func (q LogQuery) Matches(rec LogRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.Entity != "" && !strings.EqualFold(rec.Entity, q.normalizedEntity()) {
		return false
	}
	if q.Kind != "" && rec.Kind != q.Kind {
		return false
	}
	if q.Outcome != "" && rec.Outcome != q.Outcome {
		return false
	}
	return true
}

// limit truncates recs to the query limit.
func (q LogQuery) limit(recs []LogRecord) []LogRecord {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[:q.Limit]
	}
	return recs
}
