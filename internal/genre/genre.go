// Package genre maps raw provider tags onto a single display genre.
package genre

import (
	"strings"
	"unicode/utf8"

	"bookenrich/internal/book"
)

// MaxCategoryLen is the display length a category label is truncated to.
const MaxCategoryLen = 40

// Kind tells which classification strategy a Signal needs.
type Kind int

const (
	// None means the provider returned no genre signal at all.
	None Kind = iota
	// Categories are curated shelf labels, used verbatim.
	Categories
	// Subjects are free-form library subject headings.
	Subjects
)

// Signal is the raw genre information a provider returned.
type Signal struct {
	Kind Kind     `json:"kind"`
	Tags []string `json:"tags,omitempty"`
}

// FromCategories builds a category signal.
func FromCategories(tags []string) Signal {
	return Signal{Kind: Categories, Tags: tags}
}

// FromSubjects builds a subject signal.
func FromSubjects(tags []string) Signal {
	return Signal{Kind: Subjects, Tags: tags}
}

type rule struct {
	label    string
	keywords []string
}

// Order matters: the catch-all Fiction and Nonfiction labels come last.
var subjectRules = []rule{
	{"Mystery / Thriller", []string{"mystery", "detective", "crime", "thriller", "suspense"}},
	{"Science Fiction", []string{"science fiction", "sci-fi", "space", "dystopia"}},
	{"Fantasy", []string{"fantasy", "magic", "wizard", "dragon"}},
	{"Romance", []string{"romance", "love stories"}},
	{"Biography", []string{"biography", "autobiography", "memoir"}},
	{"History", []string{"history", "historical"}},
	{"Religion", []string{"religion", "christian", "bible", "spiritual"}},
	{"Kids / YA", []string{"juvenile", "children", "young adult"}},
	{"Self-Help", []string{"self-help", "personal growth", "self-improvement"}},
	{"Business", []string{"business", "economics", "management", "finance"}},
	{"Nonfiction", []string{"nonfiction", "non-fiction"}},
	{"Fiction", []string{"fiction", "novel"}},
}

// Classify returns the genre label for sig, or book.UnknownGenre.
func Classify(sig Signal) string {
	switch sig.Kind {
	case Categories:
		return FromCategoryList(sig.Tags)
	case Subjects:
		return FromSubjectList(sig.Tags)
	default:
		return book.UnknownGenre
	}
}

// FromCategoryList uses the first category as the label, trimmed and
// truncated. Blank entries are skipped rather than ending the search, so a
// list like ["", "Fiction"] still yields "Fiction"; only a list with no
// non-blank entry is Unknown.
func FromCategoryList(categories []string) string {
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		return truncate(c, MaxCategoryLen)
	}
	return book.UnknownGenre
}

// FromSubjectList runs the ordered keyword rules over the subjects.
func FromSubjectList(subjects []string) string {
	if len(subjects) == 0 {
		return book.UnknownGenre
	}
	lowered := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			lowered = append(lowered, s)
		}
	}
	for _, r := range subjectRules {
		if matchesAny(lowered, r.keywords) {
			return r.label
		}
	}
	return book.UnknownGenre
}

func matchesAny(subjects, keywords []string) bool {
	for _, s := range subjects {
		for _, k := range keywords {
			if strings.Contains(s, k) {
				return true
			}
		}
	}
	return false
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
