package enrich

import (
	"context"
	"sync"
	"testing"

	"bookenrich/internal/book"
	"bookenrich/internal/genre"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAdapter struct {
	mock.Mock
	provider string
	mode     Mode
}

func newMockAdapter(provider string, mode Mode) *mockAdapter {
	return &mockAdapter{provider: provider, mode: mode}
}

func (m *mockAdapter) Provider() string { return m.provider }
func (m *mockAdapter) Mode() Mode       { return m.mode }

func (m *mockAdapter) TryEnrich(ctx context.Context, rec book.InputRecord, missing Fields) Partial {
	args := m.Called(ctx, rec, missing)
	return args.Get(0).(Partial)
}

type panicAdapter struct{}

func (panicAdapter) Provider() string { return "broken" }
func (panicAdapter) Mode() Mode       { return ByIdentifier }
func (panicAdapter) TryEnrich(context.Context, book.InputRecord, Fields) Partial {
	panic("boom")
}

type memCache struct {
	mu   sync.Mutex
	data map[string]book.Enrichment
	puts int
}

func newMemCache() *memCache { return &memCache{data: map[string]book.Enrichment{}} }

func (c *memCache) Get(_ context.Context, key string) (book.Enrichment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) Put(_ context.Context, key string, v book.Enrichment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
	c.puts++
}

// cascade returns the four standard adapters in priority order.
func cascade() (aID, bID, aText, bText *mockAdapter) {
	return newMockAdapter("A", ByIdentifier), newMockAdapter("B", ByIdentifier),
		newMockAdapter("A", ByText), newMockAdapter("B", ByText)
}

func adapters(as ...*mockAdapter) []Adapter {
	out := make([]Adapter, len(as))
	for i, a := range as {
		out[i] = a
	}
	return out
}

var dune = book.InputRecord{Title: "Dune", Author: "Herbert", ISBN: "9780441013593"}

func TestService_Enrich(t *testing.T) {
	ctx := context.Background()

	t.Run("provider A fills everything and B is never invoked", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{
			CoverURL:    "https://books.example/dune.jpg",
			Description: "A science fiction saga",
			Genre:       genre.FromCategories([]string{"Science Fiction"}),
		})
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 1, dune)

		assert.Equal(t, book.EnrichedRecord{
			ID: 1, Title: "Dune", Author: "Herbert", ISBN: "9780441013593",
			CoverURL:    "https://books.example/dune.jpg",
			Description: "A science fiction saga",
			Genre:       "Science Fiction",
			Source:      "A",
		}, got)
		aID.AssertExpectations(t)
		bID.AssertNotCalled(t, "TryEnrich", mock.Anything, mock.Anything, mock.Anything)
		aText.AssertNotCalled(t, "TryEnrich", mock.Anything, mock.Anything, mock.Anything)
		bText.AssertNotCalled(t, "TryEnrich", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("record without isbn skips identifier lookups", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		rec := book.InputRecord{Title: "Piranesi"}
		aText.On("TryEnrich", ctx, rec, AllFields).Return(Partial{CoverURL: "https://c/p.jpg"})
		bText.On("TryEnrich", ctx, rec, Description|Genre).Return(Partial{
			Genre: genre.FromSubjects([]string{"Fantasy fiction"}),
		})
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 2, rec)

		assert.Equal(t, "https://c/p.jpg", got.CoverURL)
		assert.Equal(t, "Fantasy", got.Genre)
		assert.Equal(t, "", got.Description)
		assert.Equal(t, "A", got.Source)
		aID.AssertNotCalled(t, "TryEnrich", mock.Anything, mock.Anything, mock.Anything)
		bID.AssertNotCalled(t, "TryEnrich", mock.Anything, mock.Anything, mock.Anything)
		aText.AssertExpectations(t)
		bText.AssertExpectations(t)
	})

	t.Run("first non-empty cover wins", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{CoverURL: "https://a/cover.jpg"})
		bID.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{
			CoverURL:    "https://b/other.jpg",
			Description: "from B",
		})
		aText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{CoverURL: "https://a/third.jpg"})
		bText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 1, dune)

		assert.Equal(t, "https://a/cover.jpg", got.CoverURL)
		assert.Equal(t, "from B", got.Description)
		assert.Equal(t, "B", got.Source)
	})

	t.Run("genre is never overwritten once concrete", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{Genre: genre.FromCategories([]string{"Drama"})})
		bID.On("TryEnrich", ctx, dune, Cover|Description).Return(Partial{
			CoverURL: "https://b/c.jpg",
			Genre:    genre.FromSubjects([]string{"Science fiction"}),
		})
		aText.On("TryEnrich", ctx, dune, Description).Return(Partial{Genre: genre.FromCategories(nil)})
		bText.On("TryEnrich", ctx, dune, Description).Return(Partial{Genre: genre.FromSubjects([]string{"cooking"})})
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 1, dune)

		assert.Equal(t, "Drama", got.Genre)
		assert.Equal(t, "https://b/c.jpg", got.CoverURL)
		assert.Equal(t, "B", got.Source, "cover provider outranks genre-only provider")
		aID.AssertExpectations(t)
		bID.AssertExpectations(t)
		aText.AssertExpectations(t)
		bText.AssertExpectations(t)
	})

	t.Run("genre upgrades from unknown in a later step", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{
			CoverURL:    "https://a/c.jpg",
			Description: "desc",
		})
		bID.On("TryEnrich", ctx, dune, Genre).Return(Partial{Genre: genre.FromSubjects([]string{"Detective fiction"})})
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 1, dune)

		assert.Equal(t, "Mystery / Thriller", got.Genre)
		assert.Equal(t, "A", got.Source)
		aText.AssertNotCalled(t, "TryEnrich", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("genre-only source is used when nothing else was found", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		bID.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{Genre: genre.FromSubjects([]string{"History"})})
		aText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		bText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 1, dune)

		assert.Equal(t, "History", got.Genre)
		assert.Equal(t, "B", got.Source)
	})

	t.Run("no answers yields the empty outcome", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		for _, a := range []*mockAdapter{aID, bID, aText, bText} {
			a.On("TryEnrich", ctx, dune, AllFields).Return(Partial{})
		}
		s := NewService(adapters(aID, bID, aText, bText), nil, nil, nil)

		got := s.Enrich(ctx, 4, dune)

		assert.Equal(t, book.Empty(4, dune), got)
		for _, a := range []*mockAdapter{aID, bID, aText, bText} {
			a.AssertNumberOfCalls(t, "TryEnrich", 1)
		}
	})

	t.Run("panicking adapter degrades to empty partial", func(t *testing.T) {
		_, bID, aText, bText := cascade()
		bID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{CoverURL: "https://b/c.jpg"})
		aText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		bText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		s := NewService([]Adapter{panicAdapter{}, bID, aText, bText}, nil, nil, nil)

		var got book.EnrichedRecord
		assert.NotPanics(t, func() { got = s.Enrich(ctx, 1, dune) })
		assert.Equal(t, "https://b/c.jpg", got.CoverURL)
		assert.Equal(t, "B", got.Source)
	})
}

func TestService_Enrich_Deterministic(t *testing.T) {
	ctx := context.Background()
	build := func() *Service {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{CoverURL: "https://a/c.jpg"})
		bID.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{Description: "d", Genre: genre.FromSubjects([]string{"Fiction"})})
		aText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		bText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		return NewService(adapters(aID, bID, aText, bText), newMemCache(), nil, nil)
	}

	first := build().Enrich(ctx, 1, dune)
	second := build().Enrich(ctx, 1, dune)
	assert.Equal(t, first, second)
}

func TestService_Enrich_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("warm cache issues no provider calls", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{
			CoverURL:    "https://a/c.jpg",
			Description: "d",
			Genre:       genre.FromCategories([]string{"Fiction"}),
		}).Once()
		cache := newMemCache()
		s := NewService(adapters(aID, bID, aText, bText), cache, nil, nil)

		first, cached := s.Resolve(ctx, 1, dune)
		assert.False(t, cached)
		second, cached := s.Resolve(ctx, 1, dune)
		assert.True(t, cached)

		assert.Equal(t, first, second)
		aID.AssertNumberOfCalls(t, "TryEnrich", 1)
		assert.Equal(t, 1, cache.puts)
	})

	t.Run("records sharing an isbn share the cache entry", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{
			CoverURL:    "https://a/c.jpg",
			Description: "d",
			Genre:       genre.FromCategories([]string{"Fiction"}),
		}).Once()
		s := NewService(adapters(aID, bID, aText, bText), newMemCache(), nil, nil)

		other := book.InputRecord{Title: "DUNE (paperback)", Author: "F. Herbert", ISBN: "978-0-441-01359-3"}
		_ = s.Enrich(ctx, 1, dune)
		got := s.Enrich(ctx, 2, other)

		assert.Equal(t, "https://a/c.jpg", got.CoverURL)
		assert.Equal(t, "DUNE (paperback)", got.Title, "catalog fields come from the record itself")
		assert.Equal(t, 2, got.ID)
		aID.AssertNumberOfCalls(t, "TryEnrich", 1)
	})

	t.Run("cancelled run is not cached", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		aID, bID, aText, bText := cascade()
		for _, a := range []*mockAdapter{aID, bID, aText, bText} {
			a.On("TryEnrich", cctx, dune, mock.Anything).Return(Partial{})
		}
		cache := newMemCache()
		s := NewService(adapters(aID, bID, aText, bText), cache, nil, nil)

		got := s.Enrich(cctx, 1, dune)

		assert.Equal(t, book.Empty(1, dune), got)
		assert.Equal(t, 0, cache.puts)
	})

	t.Run("unreachable provider is not cached", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		aID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{Degraded: true})
		bID.On("TryEnrich", ctx, dune, AllFields).Return(Partial{CoverURL: "https://b/c.jpg"})
		aText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{Degraded: true})
		bText.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		cache := newMemCache()
		s := NewService(adapters(aID, bID, aText, bText), cache, nil, nil)

		got, cached := s.Resolve(ctx, 1, dune)

		assert.False(t, cached)
		assert.Equal(t, "https://b/c.jpg", got.CoverURL)
		assert.Equal(t, 0, cache.puts)

		_, cached = s.Resolve(ctx, 1, dune)
		assert.False(t, cached, "the next run must ask the providers again")
		aID.AssertNumberOfCalls(t, "TryEnrich", 2)
	})

	t.Run("definitive miss is cached", func(t *testing.T) {
		aID, bID, aText, bText := cascade()
		for _, a := range []*mockAdapter{aID, bID, aText, bText} {
			a.On("TryEnrich", ctx, dune, AllFields).Return(Partial{})
		}
		cache := newMemCache()
		s := NewService(adapters(aID, bID, aText, bText), cache, nil, nil)

		_ = s.Enrich(ctx, 1, dune)
		assert.Equal(t, 1, cache.puts)
	})

	t.Run("panicking adapter result is not cached", func(t *testing.T) {
		_, bID, aText, bText := cascade()
		for _, a := range []*mockAdapter{bID, aText, bText} {
			a.On("TryEnrich", ctx, dune, mock.Anything).Return(Partial{})
		}
		cache := newMemCache()
		s := NewService([]Adapter{panicAdapter{}, bID, aText, bText}, cache, nil, nil)

		_ = s.Enrich(ctx, 1, dune)
		assert.Equal(t, 0, cache.puts)
	})
}

func TestSecureURL(t *testing.T) {
	assert.Equal(t, "https://covers.example/1.jpg", SecureURL("http://covers.example/1.jpg"))
	assert.Equal(t, "https://covers.example/1.jpg", SecureURL(" HTTP://covers.example/1.jpg"))
	assert.Equal(t, "https://x", SecureURL("https://x"))
	assert.Equal(t, "", SecureURL(""))
}

func TestFields_String(t *testing.T) {
	assert.Equal(t, "cover,description,genre", AllFields.String())
	assert.Equal(t, "genre", Genre.String())
}
