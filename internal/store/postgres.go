package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/forecast-text-service/internal/text"
	"github.com/i474232898/forecast-text-service/internal/weather"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS forecasts (
    id UUID PRIMARY KEY,
    seq BIGSERIAL,
    forecast_date DATE NOT NULL,
    max_temperature DOUBLE PRECISION,
    max_humidity DOUBLE PRECISION,
    max_wind_speed DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE forecasts ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS idx_forecasts_created_at ON forecasts(created_at);

CREATE TABLE IF NOT EXISTS text_replacements (
    id UUID PRIMARY KEY,
    seq BIGSERIAL,
    original_text TEXT NOT NULL,
    replaced_text TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
ALTER TABLE text_replacements ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS idx_text_replacements_original ON text_replacements(original_text);
CREATE INDEX IF NOT EXISTS idx_text_replacements_created_at ON text_replacements(created_at);
`

// PostgresStore implements Store on a pgx connection pool. The seq column
// orders rows that share a created_at.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres connects to dsn. Call Migrate before use.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres: DATABASE_URL is not configured")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to connect: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (r *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// SaveForecast persists a forecast summary to PostgreSQL
func (r *PostgresStore) SaveForecast(ctx context.Context, rec weather.ForecastRecord) (string, error) {
	query := `
		INSERT INTO forecasts (
			id, forecast_date, max_temperature, max_humidity, max_wind_speed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, query,
		id, rec.ForecastDate.Time, rec.MaxTemperature, rec.MaxHumidity, rec.MaxWindSpeed, r.now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to save forecast: %w", err)
	}

	return id, nil
}

// ListForecasts retrieves the most recent forecasts
func (r *PostgresStore) ListForecasts(ctx context.Context, limit int) ([]weather.ForecastRecord, error) {
	query := `
		SELECT id::text, forecast_date, max_temperature, max_humidity, max_wind_speed, created_at
		FROM forecasts
		ORDER BY created_at DESC, seq DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, max(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query forecasts: %w", err)
	}
	defer rows.Close()

	results := make([]weather.ForecastRecord, 0)
	for rows.Next() {
		var (
			rec  weather.ForecastRecord
			date time.Time
		)
		err := rows.Scan(&rec.ID, &date, &rec.MaxTemperature, &rec.MaxHumidity, &rec.MaxWindSpeed, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan forecast row: %w", err)
		}
		rec.ForecastDate = weather.DateOf(date)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// SaveReplacement persists a text replacement to PostgreSQL
func (r *PostgresStore) SaveReplacement(ctx context.Context, rec text.Record) (string, error) {
	query := `
		INSERT INTO text_replacements (
			id, original_text, replaced_text, created_at
		) VALUES ($1, $2, $3, $4)
	`

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, query, id, rec.OriginalText, rec.ReplacedText, r.now().UTC())
	if err != nil {
		return "", fmt.Errorf("postgres: failed to save text replacement: %w", err)
	}

	return id, nil
}

// ListReplacements retrieves the most recent replacements, optionally for one original text
func (r *PostgresStore) ListReplacements(ctx context.Context, originalText string, limit int) ([]text.Record, error) {
	query := `
		SELECT id::text, original_text, replaced_text, created_at
		FROM text_replacements
		WHERE $1::text = '' OR original_text = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, originalText, max(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query text replacements: %w", err)
	}
	defer rows.Close()

	results := make([]text.Record, 0)
	for rows.Next() {
		var rec text.Record
		if err := rows.Scan(&rec.ID, &rec.OriginalText, &rec.ReplacedText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan text replacement row: %w", err)
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// Ping checks database connectivity
func (r *PostgresStore) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func (r *PostgresStore) Close() error {
	r.pool.Close()
	return nil
}
