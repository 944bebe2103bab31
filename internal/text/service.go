package text

import (
	"context"
	"log"

	"github.com/i474232898/forecast-text-service/internal/failure"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Process transforms and stores text. It returns nil, nil for two-character
// input; nothing is stored in that case.
func (s *Service) Process(ctx context.Context, text *string) (*Replacement, error) {
	if text == nil {
		return nil, failure.InvalidArgument("Text cannot be null")
	}
	log.Printf("INFO: processing text replacement for %q", *text)

	r, ok, err := Transform(*text)
	if err != nil || !ok {
		return nil, err
	}

	id, err := s.store.SaveReplacement(ctx, Record{
		OriginalText: r.OriginalText,
		ReplacedText: r.ReplacedText,
	})
	if err != nil {
		return nil, failure.Internal("failed to save text replacement", err)
	}
	log.Printf("INFO: saved text replacement with id %s", id)

	return &r, nil
}

func (s *Service) History(ctx context.Context, originalText string, limit int) ([]Record, error) {
	records, err := s.store.ListReplacements(ctx, originalText, limit)
	if err != nil {
		return nil, failure.Internal("failed to list text replacements", err)
	}
	return records, nil
}
