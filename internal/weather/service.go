package weather

import (
	"context"
	"log"
	"time"

	"github.com/i474232898/forecast-text-service/internal/failure"
)

// Service fetches the upstream forecast, aggregates it and persists the summary.
type Service struct {
	store    Store
	provider Provider
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(store Store, provider Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
		now:      time.Now,
	}
}

// Process computes and stores a summary for req. Nothing is persisted when
// the upstream call fails.
func (s *Service) Process(ctx context.Context, req *ForecastRequest) (Summary, error) {
	if req == nil {
		return Summary{}, failure.InvalidArgument("Forecast request must not be null")
	}
	log.Printf("INFO: processing forecast request %+v", *req)

	doc, err := s.provider.Fetch(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Aggregate(*req, doc, DateOf(s.now()))

	id, err := s.store.SaveForecast(ctx, summary.Record())
	if err != nil {
		return Summary{}, failure.Internal("failed to save forecast", err)
	}
	log.Printf("INFO: saved forecast %s for %s", id, summary.Date)

	return summary, nil
}

// FetchAndStore captures a summary with every metric selected.
func (s *Service) FetchAndStore(ctx context.Context) error {
	_, err := s.Process(ctx, &ForecastRequest{
		IncludeTemperature: true,
		IncludeHumidity:    true,
		IncludeWindSpeed:   true,
	})
	return err
}

// History returns up to limit stored summaries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]ForecastRecord, error) {
	records, err := s.store.ListForecasts(ctx, limit)
	if err != nil {
		return nil, failure.Internal("failed to list forecasts", err)
	}
	return records, nil
}
