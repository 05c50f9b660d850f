// Package provider adapts the Google Books and Open Library clients to the
// enrichment cascade. Adapters never return errors: any failure upstream is
// an empty Partial, flagged Degraded when the provider was unreachable.
package provider

import (
	"html"
	"regexp"
	"strings"

	strip "github.com/grokify/html-strip-tags-go"
)

const (
	GoogleBooksTag = "googlebooks"
	OpenLibraryTag = "openlibrary"
)

// blockTags separate words visually, so they become a space rather than
// vanishing with the rest of the markup.
var blockTags = regexp.MustCompile(`(?i)<br\s*/?>|</?(p|div|li|ul|ol|h[1-6]|blockquote|tr|td)\b[^>]*>`)

// CleanDescription removes markup and entities and collapses whitespace.
func CleanDescription(s string) string {
	if s == "" {
		return ""
	}
	s = blockTags.ReplaceAllString(s, " ")
	s = strip.StripTags(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
