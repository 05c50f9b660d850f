package pipeline

import (
	"fmt"
	"strings"

	"bookenrich/internal/book"
)

// Status is the one-line per-record progress message.
func Status(rec book.EnrichedRecord, cached bool) string {
	label := rec.Title
	if label == "" {
		label = rec.ISBN
	}
	if label == "" {
		label = rec.Author
	}

	var got []string
	if rec.CoverURL != "" {
		got = append(got, "cover")
	}
	if rec.Description != "" {
		got = append(got, "description")
	}
	if rec.Genre != book.UnknownGenre {
		got = append(got, "genre="+rec.Genre)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#%d %q: ", rec.ID, label)
	if len(got) == 0 {
		b.WriteString("no match")
	} else {
		fmt.Fprintf(&b, "%s via %s", strings.Join(got, ", "), rec.Source)
	}
	if cached {
		b.WriteString(" (cached)")
	}
	return b.String()
}
