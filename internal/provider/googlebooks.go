package provider

import (
	"context"

	"bookenrich/internal/book"
	"bookenrich/internal/enrich"
	"bookenrich/internal/genre"
	"bookenrich/internal/platform/googlebooks"
)

type GoogleBooksClient interface {
	ByISBN(ctx context.Context, isbn string) (*googlebooks.Volume, error)
	Search(ctx context.Context, title, author string) (*googlebooks.Volume, error)
}

// GoogleBooks is one Google Books adapter bound to a query mode.
type GoogleBooks struct {
	client GoogleBooksClient
	mode   enrich.Mode
}

func NewGoogleBooks(client GoogleBooksClient, mode enrich.Mode) *GoogleBooks {
	return &GoogleBooks{client: client, mode: mode}
}

func (g *GoogleBooks) Provider() string  { return GoogleBooksTag }
func (g *GoogleBooks) Mode() enrich.Mode { return g.mode }

func (g *GoogleBooks) TryEnrich(ctx context.Context, rec book.InputRecord, _ enrich.Fields) enrich.Partial {
	var (
		v   *googlebooks.Volume
		err error
	)
	switch g.mode {
	case enrich.ByIdentifier:
		v, err = g.client.ByISBN(ctx, book.CleanISBN(rec.ISBN))
	default:
		v, err = g.client.Search(ctx, searchTitle(rec), searchAuthor(rec))
	}
	if err != nil {
		return enrich.Partial{Degraded: true}
	}
	if v == nil {
		return enrich.Partial{}
	}

	info := v.VolumeInfo
	return enrich.Partial{
		CoverURL:    enrich.SecureURL(info.ImageLinks.Cover()),
		Description: CleanDescription(info.Description),
		Genre:       genre.FromCategories(info.Categories),
	}
}
