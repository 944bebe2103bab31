package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/forecast-text-service/internal/text"
	"github.com/i474232898/forecast-text-service/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store.
// Records are kept in insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	forecasts    []weather.ForecastRecord
	replacements []text.Record

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SaveForecast appends rec with a fresh ID and creation time.
func (s *MemoryStore) SaveForecast(ctx context.Context, rec weather.ForecastRecord) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.forecasts = append(s.forecasts, rec)
	return rec.ID, nil
}

// ListForecasts returns up to limit forecasts, newest first.
func (s *MemoryStore) ListForecasts(ctx context.Context, limit int) ([]weather.ForecastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]weather.ForecastRecord, 0, max(0, min(limit, len(s.forecasts))))
	for i := len(s.forecasts) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.forecasts[i])
	}
	return result, nil
}

// SaveReplacement appends rec with a fresh ID and creation time.
func (s *MemoryStore) SaveReplacement(ctx context.Context, rec text.Record) (string, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replacements = append(s.replacements, rec)
	return rec.ID, nil
}

// ListReplacements returns up to limit replacements, newest first, optionally
// restricted to an exact original text.
func (s *MemoryStore) ListReplacements(ctx context.Context, originalText string, limit int) ([]text.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]text.Record, 0)
	for i := len(s.replacements) - 1; i >= 0 && len(result) < limit; i-- {
		rec := s.replacements[i]
		if originalText != "" && rec.OriginalText != originalText {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
