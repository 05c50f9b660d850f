package book

// UnknownGenre is the genre of a record no provider could classify.
const UnknownGenre = "Unknown"

// InputRecord is one catalog entry as handed over by ingestion.
// Any subset of the fields may be empty.
type InputRecord struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// IsEmpty reports whether the record carries nothing to enrich from.
func (r InputRecord) IsEmpty() bool {
	return isBlank(r.Title) && isBlank(r.Author) && isBlank(r.ISBN)
}

// HasISBN reports whether the record has a usable identifier after cleaning.
func (r InputRecord) HasISBN() bool {
	return CleanISBN(r.ISBN) != ""
}

// HasText reports whether the record can be searched by title or author.
func (r InputRecord) HasText() bool {
	return !isBlank(r.Title) || !isBlank(r.Author)
}

// EnrichedRecord is the merged result for one InputRecord. Values are
// built once and never mutated afterwards.
type EnrichedRecord struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	CoverURL    string `json:"coverUrl"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Source      string `json:"source"`
}

// Empty returns the no-match outcome for rec.
func Empty(id int, rec InputRecord) EnrichedRecord {
	return EnrichedRecord{
		ID:     id,
		Title:  rec.Title,
		Author: rec.Author,
		ISBN:   rec.ISBN,
		Genre:  UnknownGenre,
	}
}

// Enrichment is the provider-derived part of an EnrichedRecord; it is what
// the cache stores under a record's identity.
type Enrichment struct {
	CoverURL    string `json:"coverUrl"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Source      string `json:"source"`
}

// Record combines e with the catalog fields of rec.
func (e Enrichment) Record(id int, rec InputRecord) EnrichedRecord {
	g := e.Genre
	if g == "" {
		g = UnknownGenre
	}
	return EnrichedRecord{
		ID:          id,
		Title:       rec.Title,
		Author:      rec.Author,
		ISBN:        rec.ISBN,
		CoverURL:    e.CoverURL,
		Description: e.Description,
		Genre:       g,
		Source:      e.Source,
	}
}
