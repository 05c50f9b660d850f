package enrich

import (
	"context"
	"time"

	"bookenrich/internal/book"
	"bookenrich/internal/genre"
	"bookenrich/internal/metrics"
	"bookenrich/internal/platform/logger"
)

// Service merges provider answers for one record at a time. Adapters are
// tried in slice order, which is the cascade priority.
type Service struct {
	adapters []Adapter
	cache    Cache
	metrics  *metrics.Registry
	log      *logger.Logger
}

// NewService builds the orchestrator. cache may be nil to disable caching.
func NewService(adapters []Adapter, cache Cache, reg *metrics.Registry, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		adapters: adapters,
		cache:    cache,
		metrics:  reg,
		log:      log,
	}
}

// Enrich returns the merged record for rec. A warm cache entry short-circuits
// every provider call. The result is deterministic for identical provider
// answers.
func (s *Service) Enrich(ctx context.Context, id int, rec book.InputRecord) book.EnrichedRecord {
	out, _ := s.Resolve(ctx, id, rec)
	return out
}

// Resolve is Enrich that also reports whether the answer came from the cache.
func (s *Service) Resolve(ctx context.Context, id int, rec book.InputRecord) (book.EnrichedRecord, bool) {
	start := time.Now()
	defer func() { s.metrics.RecordDone(time.Since(start).Seconds()) }()

	key := book.Identity(rec)
	if key != "" && s.cache != nil {
		if hit, ok := s.cache.Get(ctx, key); ok {
			s.metrics.CacheHit()
			s.log.Debug("cache hit", "id", id, "key", key)
			return hit.Record(id, rec), true
		}
		s.metrics.CacheMiss()
	}

	res, degraded := s.Cascade(ctx, rec)

	// Results shaped by a cancelled run or an unreachable provider would
	// otherwise pin missing fields for the whole retention window.
	switch {
	case key == "" || s.cache == nil:
	case ctx.Err() != nil:
	case degraded:
		s.log.Debug("provider unavailable, result not cached", "id", id, "key", key)
	default:
		s.cache.Put(ctx, key, res)
	}
	return res.Record(id, rec), false
}

// Cascade runs the adapters in order until cover, description and genre
// are all filled or the adapters are exhausted. degraded reports whether
// any step that ran hit an unreachable provider.
func (s *Service) Cascade(ctx context.Context, rec book.InputRecord) (_ book.Enrichment, degraded bool) {
	m := newMerger()
	for _, a := range s.adapters {
		missing := m.missing()
		if missing == 0 {
			break
		}
		if !applies(a.Mode(), rec) {
			continue
		}
		p := s.try(ctx, a, rec, missing)
		m.apply(p)
		degraded = degraded || p.Degraded
	}
	return m.result(), degraded
}

func applies(mode Mode, rec book.InputRecord) bool {
	switch mode {
	case ByIdentifier:
		return rec.HasISBN()
	case ByText:
		return rec.HasText()
	default:
		return false
	}
}

func (s *Service) try(ctx context.Context, a Adapter, rec book.InputRecord, missing Fields) (p Partial) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("adapter panicked", "provider", a.Provider(), "mode", a.Mode().String(), "panic", r)
			s.metrics.ProviderCall(a.Provider(), a.Mode().String(), "panic")
			p = Partial{Degraded: true}
		}
	}()

	p = a.TryEnrich(ctx, rec, missing)
	p.Provider = a.Provider()

	outcome := "hit"
	switch {
	case p.Degraded && p.IsEmpty():
		outcome = "unavailable"
	case p.IsEmpty():
		outcome = "empty"
	}
	s.metrics.ProviderCall(a.Provider(), a.Mode().String(), outcome)
	return p
}

// merger applies first-non-empty-wins per field. Genre may only move from
// Unknown to a concrete label.
type merger struct {
	cover       string
	description string
	genre       string
	// primary is the last provider that filled cover or description,
	// genreOnly the last one that filled only the genre.
	primary   string
	genreOnly string
}

func newMerger() *merger {
	return &merger{genre: book.UnknownGenre}
}

func (m *merger) missing() Fields {
	var f Fields
	if m.cover == "" {
		f |= Cover
	}
	if m.description == "" {
		f |= Description
	}
	if m.genre == book.UnknownGenre {
		f |= Genre
	}
	return f
}

func (m *merger) apply(p Partial) {
	var filledPrimary, filledGenre bool
	if m.cover == "" && p.CoverURL != "" {
		m.cover = p.CoverURL
		filledPrimary = true
	}
	if m.description == "" && p.Description != "" {
		m.description = p.Description
		filledPrimary = true
	}
	if m.genre == book.UnknownGenre {
		if g := genre.Classify(p.Genre); g != book.UnknownGenre {
			m.genre = g
			filledGenre = true
		}
	}
	switch {
	case filledPrimary:
		m.primary = p.Provider
	case filledGenre:
		m.genreOnly = p.Provider
	}
}

func (m *merger) result() book.Enrichment {
	source := m.primary
	if source == "" {
		source = m.genreOnly
	}
	return book.Enrichment{
		CoverURL:    m.cover,
		Description: m.description,
		Genre:       m.genre,
		Source:      source,
	}
}
