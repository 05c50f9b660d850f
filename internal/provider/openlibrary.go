package provider

import (
	"context"
	"strings"

	"bookenrich/internal/book"
	"bookenrich/internal/enrich"
	"bookenrich/internal/genre"
	"bookenrich/internal/platform/openlibrary"
)

type OpenLibraryClient interface {
	Edition(ctx context.Context, isbn string) (*openlibrary.Edition, error)
	Work(ctx context.Context, key string) (*openlibrary.Work, error)
	Search(ctx context.Context, title, author string) (*openlibrary.SearchDoc, error)
}

// OpenLibrary is one Open Library adapter bound to a query mode. Search
// results carry no description.
type OpenLibrary struct {
	client OpenLibraryClient
	mode   enrich.Mode
}

func NewOpenLibrary(client OpenLibraryClient, mode enrich.Mode) *OpenLibrary {
	return &OpenLibrary{client: client, mode: mode}
}

func (o *OpenLibrary) Provider() string  { return OpenLibraryTag }
func (o *OpenLibrary) Mode() enrich.Mode { return o.mode }

func (o *OpenLibrary) TryEnrich(ctx context.Context, rec book.InputRecord, missing enrich.Fields) enrich.Partial {
	if o.mode == enrich.ByIdentifier {
		return o.byISBN(ctx, book.CleanISBN(rec.ISBN), missing)
	}
	doc, err := o.client.Search(ctx, searchTitle(rec), searchAuthor(rec))
	if err != nil {
		return enrich.Partial{Degraded: true}
	}
	if doc == nil {
		return enrich.Partial{}
	}
	return enrich.Partial{
		CoverURL: openlibrary.CoverURL(doc.CoverID),
		Genre:    genre.FromSubjects(doc.Subjects),
	}
}

func (o *OpenLibrary) byISBN(ctx context.Context, isbn string, missing enrich.Fields) enrich.Partial {
	ed, err := o.client.Edition(ctx, isbn)
	if err != nil {
		return enrich.Partial{Degraded: true}
	}
	if ed == nil {
		return enrich.Partial{}
	}

	cover := openlibrary.FirstCover(ed.Covers)
	desc := CleanDescription(string(ed.Description))
	subjects := ed.Subjects

	var degraded bool
	needWork := (desc == "" && missing.Has(enrich.Description)) ||
		(len(subjects) == 0 && missing.Has(enrich.Genre))
	if key := ed.WorkKey(); needWork && key != "" {
		w, err := o.client.Work(ctx, key)
		degraded = err != nil
		if w != nil {
			if desc == "" {
				desc = CleanDescription(string(w.Description))
			}
			if len(subjects) == 0 {
				subjects = w.Subjects
			}
			if cover == "" {
				cover = openlibrary.FirstCover(w.Covers)
			}
		}
	}

	return enrich.Partial{
		CoverURL:    enrich.SecureURL(cover),
		Description: desc,
		Genre:       genre.FromSubjects(subjects),
		Degraded:    degraded,
	}
}

func searchTitle(rec book.InputRecord) string {
	return strings.Join(strings.Fields(rec.Title), " ")
}

// searchAuthor keeps only the first listed author; multi-author strings
// tend to match nothing.
func searchAuthor(rec book.InputRecord) string {
	a := strings.TrimSpace(rec.Author)
	if a == "" {
		return ""
	}
	for _, sep := range []string{" and ", " & ", ",", ";"} {
		if i := strings.Index(a, sep); i > 0 {
			a = a[:i]
		}
	}
	return strings.Join(strings.Fields(a), " ")
}
