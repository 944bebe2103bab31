package weather

import (
	"context"
)

// Provider abstracts the upstream forecast source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (*Document, error)
}

// Store persists forecast summaries. Records are append-only.
type Store interface {
	SaveForecast(ctx context.Context, rec ForecastRecord) (string, error)
	// ListForecasts returns up to limit records, newest first.
	ListForecasts(ctx context.Context, limit int) ([]ForecastRecord, error)
}
