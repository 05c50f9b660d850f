// Package pipeline wires ingestion, enrichment and persistence into one run.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"bookenrich/internal/book"
	"bookenrich/internal/ingest"
	"bookenrich/internal/metrics"
	"bookenrich/internal/platform/logger"
	"bookenrich/internal/scheduler"

	"github.com/google/uuid"
)

type Enricher interface {
	Resolve(ctx context.Context, id int, rec book.InputRecord) (book.EnrichedRecord, bool)
}

type Saver interface {
	Save(ctx context.Context, runID, path string, records []book.EnrichedRecord) error
}

type Config struct {
	Input    string
	Output   string
	Deadline time.Duration
	// Scheduler carries concurrency, politeness delay and progress cadence.
	// OnProgress and Logger are set by the service.
	Scheduler scheduler.Options
}

type Service struct {
	enricher Enricher
	saver    Saver
	runs     RunRepository
	cfg      Config
	metrics  *metrics.Registry
	log      *logger.Logger
}

func NewService(enricher Enricher, saver Saver, runs RunRepository, cfg Config, reg *metrics.Registry, log *logger.Logger) *Service {
	if runs == nil {
		runs = LogRepo{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		enricher: enricher,
		saver:    saver,
		runs:     runs,
		cfg:      cfg,
		metrics:  reg,
		log:      log,
	}
}

// Run loads the input, enriches every record and persists the result. It
// fails only when the input cannot be read or the output cannot be written.
// Cancelling ctx or hitting the deadline still writes a complete output in
// which unfinished records carry the empty outcome.
func (s *Service) Run(ctx context.Context) (_ *Run, err error) {
	run := &Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now(),
		Status:     StatusRunning,
		InputPath:  s.cfg.Input,
		OutputPath: s.cfg.Output,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	log := s.log.With("run", run.ID)

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err != nil && run.Error == "" {
			run.Error = err.Error()
		}
		if run.Error != "" {
			run.Status = StatusFailed
		} else {
			run.Status = StatusCompleted
		}
		// The run row is written even when ctx was cancelled.
		if updateErr := s.runs.UpdateRun(context.WithoutCancel(ctx), run); updateErr != nil {
			log.Error("failed to update run", "error", updateErr)
		}
	}()

	batch, err := ingest.Load(s.cfg.Input)
	if err != nil {
		return run, err
	}
	run.Input = batch.Total
	run.Dropped = len(batch.Dropped)
	if run.Dropped > 0 {
		s.metrics.Dropped(run.Dropped)
		log.Warn("dropped records with no title, author or isbn", "count", run.Dropped, "positions", batch.Dropped)
	}
	if len(batch.Records) == 0 {
		log.Warn("input has no records to enrich", "path", s.cfg.Input)
	}

	records := s.enrichAll(ctx, run, batch.Records)
	run.tally(records)

	if err := s.saver.Save(context.WithoutCancel(ctx), run.ID, s.cfg.Output, records); err != nil {
		return run, fmt.Errorf("persist output: %w", err)
	}

	log.Info("run finished",
		"input", run.Input,
		"dropped", run.Dropped,
		"enriched", run.Enriched,
		"cache_hits", run.CacheHits,
		"with_cover", run.WithCover,
		"with_description", run.WithDescription,
		"unknown_genre", run.UnknownGenre,
		"elapsed", time.Since(run.StartedAt).Round(time.Millisecond).String(),
	)
	return run, nil
}

func (s *Service) enrichAll(ctx context.Context, run *Run, records []book.InputRecord) []book.EnrichedRecord {
	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	var hits atomic.Int64
	work := func(ctx context.Context, i int, rec book.InputRecord) book.EnrichedRecord {
		out, cached := s.enricher.Resolve(ctx, i, rec)
		if cached {
			hits.Add(1)
		}
		s.log.Debug(Status(out, cached))
		return out
	}
	fallback := func(i int, rec book.InputRecord) book.EnrichedRecord {
		return book.Empty(i, rec)
	}

	opts := s.cfg.Scheduler
	opts.Logger = s.log
	opts.OnProgress = func(done, total int) {
		s.log.Info("progress", "completed", done, "total", total)
	}

	out := scheduler.RunAll(ctx, records, work, fallback, opts)
	run.CacheHits = int(hits.Load())
	if ctx.Err() != nil {
		s.log.Warn("run interrupted, unfinished records left empty", "error", ctx.Err())
	}
	return out
}
