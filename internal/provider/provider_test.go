package provider

import (
	"context"
	"testing"

	"bookenrich/internal/book"
	"bookenrich/internal/enrich"
	"bookenrich/internal/genre"
	"bookenrich/internal/platform/fetch"
	"bookenrich/internal/platform/googlebooks"
	"bookenrich/internal/platform/openlibrary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockGoogleBooks struct {
	mock.Mock
}

func (m *mockGoogleBooks) ByISBN(ctx context.Context, isbn string) (*googlebooks.Volume, error) {
	args := m.Called(ctx, isbn)
	v, _ := args.Get(0).(*googlebooks.Volume)
	return v, args.Error(1)
}

func (m *mockGoogleBooks) Search(ctx context.Context, title, author string) (*googlebooks.Volume, error) {
	args := m.Called(ctx, title, author)
	v, _ := args.Get(0).(*googlebooks.Volume)
	return v, args.Error(1)
}

type mockOpenLibrary struct {
	mock.Mock
}

func (m *mockOpenLibrary) Edition(ctx context.Context, isbn string) (*openlibrary.Edition, error) {
	args := m.Called(ctx, isbn)
	e, _ := args.Get(0).(*openlibrary.Edition)
	return e, args.Error(1)
}

func (m *mockOpenLibrary) Work(ctx context.Context, key string) (*openlibrary.Work, error) {
	args := m.Called(ctx, key)
	w, _ := args.Get(0).(*openlibrary.Work)
	return w, args.Error(1)
}

func (m *mockOpenLibrary) Search(ctx context.Context, title, author string) (*openlibrary.SearchDoc, error) {
	args := m.Called(ctx, title, author)
	d, _ := args.Get(0).(*openlibrary.SearchDoc)
	return d, args.Error(1)
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "A desert planet & its spice.", CleanDescription("<p>A desert  planet &amp; its\n<b>spice</b>.</p>"))
	assert.Equal(t, "", CleanDescription("   "))
	assert.Equal(t, "", CleanDescription(""))
	assert.Equal(t, "Paul Atreides. Arrakis awaits.", CleanDescription("<p>Paul Atreides.</p><p>Arrakis awaits.</p>"))
	assert.Equal(t, "a b c", CleanDescription("a<br>b<BR />c"))
	assert.Equal(t, "one two", CleanDescription("<ul><li>one</li><li>two</li></ul>"))
}

func TestGoogleBooks_TryEnrich(t *testing.T) {
	ctx := context.Background()

	t.Run("identifier lookup", func(t *testing.T) {
		client := new(mockGoogleBooks)
		client.On("ByISBN", ctx, "0441013597").Return(&googlebooks.Volume{
			VolumeInfo: googlebooks.VolumeInfo{
				Description: "<i>Desert</i> planet",
				Categories:  []string{" Fiction "},
				ImageLinks:  googlebooks.ImageLinks{SmallThumbnail: "http://img/s.jpg"},
			},
		}, nil)

		a := NewGoogleBooks(client, enrich.ByIdentifier)
		p := a.TryEnrich(ctx, book.InputRecord{ISBN: "0-441-01359-7"}, enrich.AllFields)

		assert.Equal(t, GoogleBooksTag, a.Provider())
		assert.Equal(t, enrich.ByIdentifier, a.Mode())
		assert.Equal(t, "https://img/s.jpg", p.CoverURL)
		assert.Equal(t, "Desert planet", p.Description)
		assert.Equal(t, genre.Categories, p.Genre.Kind)
		assert.Equal(t, "Fiction", genre.Classify(p.Genre))
		client.AssertExpectations(t)
	})

	t.Run("search uses first author", func(t *testing.T) {
		client := new(mockGoogleBooks)
		client.On("Search", ctx, "The Hobbit", "J.R.R. Tolkien").Return(&googlebooks.Volume{
			VolumeInfo: googlebooks.VolumeInfo{
				ImageLinks: googlebooks.ImageLinks{Thumbnail: "https://img/t.jpg"},
			},
		}, nil)

		a := NewGoogleBooks(client, enrich.ByText)
		p := a.TryEnrich(ctx, book.InputRecord{Title: " The  Hobbit ", Author: "J.R.R. Tolkien, Christopher Tolkien"}, enrich.AllFields)

		assert.Equal(t, "https://img/t.jpg", p.CoverURL)
		assert.Empty(t, p.Description)
		assert.Equal(t, book.UnknownGenre, genre.Classify(p.Genre))
		client.AssertExpectations(t)
	})

	t.Run("absence is an empty partial", func(t *testing.T) {
		client := new(mockGoogleBooks)
		client.On("ByISBN", ctx, "123").Return(nil, nil)

		p := NewGoogleBooks(client, enrich.ByIdentifier).TryEnrich(ctx, book.InputRecord{ISBN: "123"}, enrich.AllFields)
		assert.True(t, p.IsEmpty())
		assert.False(t, p.Degraded)
	})

	t.Run("outage is a degraded empty partial", func(t *testing.T) {
		client := new(mockGoogleBooks)
		client.On("Search", ctx, "Dune", "").Return(nil, fetch.ErrUnavailable)

		p := NewGoogleBooks(client, enrich.ByText).TryEnrich(ctx, book.InputRecord{Title: "Dune"}, enrich.AllFields)
		assert.True(t, p.IsEmpty())
		assert.True(t, p.Degraded)
	})
}

func TestOpenLibrary_Identifier(t *testing.T) {
	ctx := context.Background()
	rec := book.InputRecord{ISBN: "9780441013593"}

	t.Run("edition complete skips work", func(t *testing.T) {
		client := new(mockOpenLibrary)
		client.On("Edition", ctx, "9780441013593").Return(&openlibrary.Edition{
			Covers:      []int{-1, 42},
			Description: "Spice",
			Subjects:    []string{"Science fiction"},
			Works:       []openlibrary.Ref{{Key: "/works/OL1W"}},
		}, nil)

		p := NewOpenLibrary(client, enrich.ByIdentifier).TryEnrich(ctx, rec, enrich.AllFields)

		assert.Equal(t, "https://covers.openlibrary.org/b/id/42-L.jpg", p.CoverURL)
		assert.Equal(t, "Spice", p.Description)
		assert.Equal(t, "Science Fiction", genre.Classify(p.Genre))
		client.AssertNotCalled(t, "Work", mock.Anything, mock.Anything)
	})

	t.Run("missing description resolves work", func(t *testing.T) {
		client := new(mockOpenLibrary)
		client.On("Edition", ctx, "9780441013593").Return(&openlibrary.Edition{
			Works: []openlibrary.Ref{{Key: "/works/OL1W"}},
		}, nil)
		client.On("Work", ctx, "/works/OL1W").Return(&openlibrary.Work{
			Covers:      []int{7},
			Description: "<p>From the work</p>",
			Subjects:    []string{"Dragons"},
		}, nil)

		p := NewOpenLibrary(client, enrich.ByIdentifier).TryEnrich(ctx, rec, enrich.AllFields)

		assert.Equal(t, "https://covers.openlibrary.org/b/id/7-L.jpg", p.CoverURL)
		assert.Equal(t, "From the work", p.Description)
		assert.Equal(t, "Fantasy", genre.Classify(p.Genre))
		client.AssertExpectations(t)
	})

	t.Run("work skipped when nothing it could fill is missing", func(t *testing.T) {
		client := new(mockOpenLibrary)
		client.On("Edition", ctx, "9780441013593").Return(&openlibrary.Edition{
			Covers: []int{3},
			Works:  []openlibrary.Ref{{Key: "/works/OL1W"}},
		}, nil)

		p := NewOpenLibrary(client, enrich.ByIdentifier).TryEnrich(ctx, rec, enrich.Cover)

		assert.Equal(t, "https://covers.openlibrary.org/b/id/3-L.jpg", p.CoverURL)
		client.AssertNotCalled(t, "Work", mock.Anything, mock.Anything)
	})

	t.Run("missing edition", func(t *testing.T) {
		client := new(mockOpenLibrary)
		client.On("Edition", ctx, "9780441013593").Return(nil, nil)

		p := NewOpenLibrary(client, enrich.ByIdentifier).TryEnrich(ctx, rec, enrich.AllFields)
		assert.True(t, p.IsEmpty())
		assert.False(t, p.Degraded)
	})

	t.Run("edition outage is degraded", func(t *testing.T) {
		client := new(mockOpenLibrary)
		client.On("Edition", ctx, "9780441013593").Return(nil, fetch.ErrUnavailable)

		p := NewOpenLibrary(client, enrich.ByIdentifier).TryEnrich(ctx, rec, enrich.AllFields)
		assert.True(t, p.IsEmpty())
		assert.True(t, p.Degraded)
	})

	t.Run("work outage keeps edition fields but is degraded", func(t *testing.T) {
		client := new(mockOpenLibrary)
		client.On("Edition", ctx, "9780441013593").Return(&openlibrary.Edition{
			Covers: []int{5},
			Works:  []openlibrary.Ref{{Key: "/works/OL1W"}},
		}, nil)
		client.On("Work", ctx, "/works/OL1W").Return(nil, fetch.ErrUnavailable)

		p := NewOpenLibrary(client, enrich.ByIdentifier).TryEnrich(ctx, rec, enrich.AllFields)
		assert.Equal(t, "https://covers.openlibrary.org/b/id/5-L.jpg", p.CoverURL)
		assert.True(t, p.Degraded)
	})
}

func TestOpenLibrary_Search(t *testing.T) {
	ctx := context.Background()
	client := new(mockOpenLibrary)
	client.On("Search", ctx, "Gone Girl", "Gillian Flynn").Return(&openlibrary.SearchDoc{
		CoverID:  99,
		Subjects: []string{"Fiction", "Missing persons", "Thrillers"},
	}, nil)

	a := NewOpenLibrary(client, enrich.ByText)
	p := a.TryEnrich(ctx, book.InputRecord{Title: "Gone Girl", Author: "Gillian Flynn"}, enrich.AllFields)

	assert.Equal(t, OpenLibraryTag, a.Provider())
	assert.Equal(t, enrich.ByText, a.Mode())
	assert.Equal(t, "https://covers.openlibrary.org/b/id/99-L.jpg", p.CoverURL)
	assert.Empty(t, p.Description)
	assert.Equal(t, "Mystery / Thriller", genre.Classify(p.Genre))
}

func TestSearchAuthor(t *testing.T) {
	tests := map[string]string{
		"Terry Pratchett and Neil Gaiman": "Terry Pratchett",
		"Doe, Jane; Roe, Rick":            "Doe",
		"  Ursula   K. Le Guin ":          "Ursula K. Le Guin",
		"":                                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, searchAuthor(book.InputRecord{Author: in}), in)
	}
}
