package pipeline

import (
	"time"

	"bookenrich/internal/book"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run is the bookkeeping record of one pipeline execution.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      *time.Time
	Status          string
	InputPath       string
	OutputPath      string
	Input           int
	Dropped         int
	Enriched        int
	CacheHits       int
	WithCover       int
	WithDescription int
	UnknownGenre    int
	Error           string
}

// tally fills the outcome counters from the finished records.
func (r *Run) tally(records []book.EnrichedRecord) {
	r.Enriched = len(records)
	r.WithCover, r.WithDescription, r.UnknownGenre = 0, 0, 0
	for _, rec := range records {
		if rec.CoverURL != "" {
			r.WithCover++
		}
		if rec.Description != "" {
			r.WithDescription++
		}
		if rec.Genre == book.UnknownGenre {
			r.UnknownGenre++
		}
	}
}
