package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/i474232898/forecast-text-service/internal/text"
	"github.com/i474232898/forecast-text-service/internal/weather"
)

// Fixed-width UTC layout so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS forecasts (
    id TEXT PRIMARY KEY,
    forecast_date TEXT NOT NULL,
    max_temperature REAL,
    max_humidity REAL,
    max_wind_speed REAL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forecasts_created_at ON forecasts(created_at);

CREATE TABLE IF NOT EXISTS text_replacements (
    id TEXT PRIMARY KEY,
    original_text TEXT NOT NULL,
    replaced_text TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_text_replacements_original ON text_replacements(original_text);
CREATE INDEX IF NOT EXISTS idx_text_replacements_created_at ON text_replacements(created_at);
`

// SQLiteStore implements Store using the pure Go modernc.org/sqlite driver.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at path. Call Migrate before use.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Println("warning: could not set WAL mode:", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveForecast(ctx context.Context, rec weather.ForecastRecord) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forecasts(id, forecast_date, max_temperature, max_humidity, max_wind_speed, created_at) VALUES(?,?,?,?,?,?)`,
		id, rec.ForecastDate.String(), rec.MaxTemperature, rec.MaxHumidity, rec.MaxWindSpeed,
		s.now().UTC().Format(sqliteTimeLayout))
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to save forecast: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListForecasts(ctx context.Context, limit int) ([]weather.ForecastRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, forecast_date, max_temperature, max_humidity, max_wind_speed, created_at
		 FROM forecasts ORDER BY created_at DESC, rowid DESC LIMIT ?`, max(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query forecasts: %w", err)
	}
	defer rows.Close()

	out := make([]weather.ForecastRecord, 0)
	for rows.Next() {
		var (
			rec             weather.ForecastRecord
			date, createdAt string
			temp, hum, wind sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &date, &temp, &hum, &wind, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan forecast row: %w", err)
		}
		if rec.ForecastDate, err = weather.ParseDate(date); err != nil {
			return nil, fmt.Errorf("sqlite: bad forecast_date %q: %w", date, err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: bad created_at %q: %w", createdAt, err)
		}
		rec.MaxTemperature = nullableFloat(temp)
		rec.MaxHumidity = nullableFloat(hum)
		rec.MaxWindSpeed = nullableFloat(wind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveReplacement(ctx context.Context, rec text.Record) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO text_replacements(id, original_text, replaced_text, created_at) VALUES(?,?,?,?)`,
		id, rec.OriginalText, rec.ReplacedText, s.now().UTC().Format(sqliteTimeLayout))
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to save text replacement: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListReplacements(ctx context.Context, originalText string, limit int) ([]text.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_text, replaced_text, created_at
		 FROM text_replacements
		 WHERE ? = '' OR original_text = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, originalText, originalText, max(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query text replacements: %w", err)
	}
	defer rows.Close()

	out := make([]text.Record, 0)
	for rows.Next() {
		var (
			rec       text.Record
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.OriginalText, &rec.ReplacedText, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan text replacement row: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: bad created_at %q: %w", createdAt, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
