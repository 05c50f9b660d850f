package book

import (
	"strings"
	"unicode"
)

// CleanISBN keeps only digits and X, upper-cased.
func CleanISBN(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// Identity returns the normalized identity of rec, used as cache key and
// dedup key. A cleaned ISBN wins; otherwise it is "title|first author".
// Records with neither yield "".
func Identity(rec InputRecord) string {
	if isbn := CleanISBN(rec.ISBN); isbn != "" {
		return isbn
	}
	title := collapse(rec.Title)
	author := FirstAuthor(rec.Author)
	if title == "" && author == "" {
		return ""
	}
	return title + "|" + author
}

// FirstAuthor returns the first name out of a multi-author string,
// lower-cased with whitespace collapsed.
func FirstAuthor(raw string) string {
	s := strings.ToLower(raw)
	if i := strings.Index(s, " and "); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexAny(s, ",;&"); i >= 0 {
		s = s[:i]
	}
	return collapse(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
