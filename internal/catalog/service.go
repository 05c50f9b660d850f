package catalog

import (
	"context"
	"fmt"

	"bookenrich/internal/book"
	"bookenrich/internal/platform/logger"
)

type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService builds the persistence step. repo may be nil when no database
// is configured; only the output file is written then.
func NewService(repo Repository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log}
}

// Save writes records to path and mirrors them to the repository.
func (s *Service) Save(ctx context.Context, runID, path string, records []book.EnrichedRecord) error {
	if err := WriteJSON(path, records); err != nil {
		return err
	}
	s.log.Info("output written", "path", path, "records", len(records))

	if s.repo == nil {
		return nil
	}
	rows := Rows(records)
	if err := s.repo.UpsertBooks(ctx, runID, rows); err != nil {
		return fmt.Errorf("mirror to database: %w", err)
	}
	if skipped := len(records) - len(rows); skipped > 0 {
		s.log.Warn("records without identity not mirrored", "count", skipped)
	}
	return nil
}
