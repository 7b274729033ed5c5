package forecastlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore persists records in a forecast_logs table. Filters on time,
// entity, kind and outcome run in SQL; the full record is kept as JSON.
type SQLStore struct {
	db *sqlx.DB
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS forecast_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	request_id TEXT,
	kind TEXT,
	entity TEXT,
	outcome TEXT,
	record TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS forecast_logs_ts ON forecast_logs (ts);`

const postgresSchema = `CREATE TABLE IF NOT EXISTS forecast_logs (
	id BIGSERIAL PRIMARY KEY,
	ts BIGINT NOT NULL,
	request_id TEXT,
	kind TEXT,
	entity TEXT,
	outcome TEXT,
	record JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS forecast_logs_ts ON forecast_logs (ts);`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return openSQL(context.Background(), "sqlite", path, sqliteSchema)
}

// NewPostgresStore connects to dsn and ensures schema.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	return openSQL(ctx, "postgres", dsn, postgresSchema)
}

func openSQL(ctx context.Context, driver, dsn, schema string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, fmt.Errorf("%s schema: %w", driver, err)
	}
	return &SQLStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLStore) Append(ctx context.Context, rec LogRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO forecast_logs (ts, request_id, kind, entity, outcome, record) VALUES (?, ?, ?, ?, ?, ?)`),
		rec.Timestamp.UnixNano(), rec.RequestID, rec.Kind, strings.ToLower(rec.Entity), rec.Outcome, string(b))
	return err
}

// Query returns records matching q in timestamp order.
func (s *SQLStore) Query(ctx context.Context, q LogQuery) ([]LogRecord, error) {
	var args []any
	query := `SELECT record FROM forecast_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Entity != "" {
		query += ` AND entity = ?`
		args = append(args, strings.ToLower(q.normalizedEntity()))
	}
	if q.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, q.Kind)
	}
	if q.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, q.Outcome)
	}
	query += ` ORDER BY ts, id`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, q.Limit)
	}
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	res := make([]LogRecord, 0, len(rows))
	for _, data := range rows {
		var r LogRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }
