package enrich

import (
	"strings"

	"bookenrich/internal/genre"
)

// Mode is the way an adapter queries its provider.
type Mode int

const (
	// ByIdentifier looks a record up by its cleaned ISBN.
	ByIdentifier Mode = iota
	// ByText searches by title and author tokens.
	ByText
)

func (m Mode) String() string {
	if m == ByIdentifier {
		return "isbn"
	}
	return "search"
}

// Fields is a set of enrichment targets.
type Fields uint8

const (
	Cover Fields = 1 << iota
	Description
	Genre

	AllFields = Cover | Description | Genre
)

func (f Fields) Has(x Fields) bool { return f&x != 0 }

func (f Fields) String() string {
	var parts []string
	if f.Has(Cover) {
		parts = append(parts, "cover")
	}
	if f.Has(Description) {
		parts = append(parts, "description")
	}
	if f.Has(Genre) {
		parts = append(parts, "genre")
	}
	return strings.Join(parts, ",")
}

// Partial is what one adapter call produced. Empty fields mean the
// provider had no answer; they never signal an error. Degraded is set when
// some of that absence came from an unreachable provider rather than a
// definitive miss.
type Partial struct {
	CoverURL    string
	Description string
	Genre       genre.Signal
	Provider    string
	Degraded    bool
}

func (p Partial) IsEmpty() bool {
	return p.CoverURL == "" && p.Description == "" && len(p.Genre.Tags) == 0
}

// SecureURL upgrades plain-http links to https.
func SecureURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(strings.ToLower(u), "http://") {
		return "https://" + u[len("http://"):]
	}
	return u
}
