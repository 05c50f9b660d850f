// Package ingest loads the input catalog and normalizes its key aliases
// into book.InputRecord values.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"bookenrich/internal/book"

	"github.com/goccy/go-json"
)

var (
	titleKeys  = []string{"title", "Title", "book_title", "name"}
	authorKeys = []string{"author", "Author", "authors", "writer", "creator"}
	isbnKeys   = []string{"isbn", "ISBN", "isbn13", "isbn_13", "isbn10", "isbn_10"}
)

// Batch is the outcome of loading an input file.
type Batch struct {
	Records []book.InputRecord
	// Dropped holds the 0-based input positions of records that had no
	// title, author or ISBN.
	Dropped []int
	Total   int
}

// Load reads and normalizes the JSON array at path.
func Load(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	b, err := Decode(f)
	if err != nil {
		return Batch{}, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// Decode reads a JSON array of objects from r. An empty array, or one in
// which every record was dropped, is a valid batch with no records.
func Decode(r io.Reader) (Batch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Batch{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Batch{}, fmt.Errorf("decode input: %w", err)
	}

	return Normalize(raw), nil
}

// Normalize maps raw objects onto InputRecords and drops empty ones.
func Normalize(raw []map[string]any) Batch {
	b := Batch{Total: len(raw)}
	for i, obj := range raw {
		rec := book.InputRecord{
			Title:  pick(obj, titleKeys),
			Author: pick(obj, authorKeys),
			ISBN:   pick(obj, isbnKeys),
		}
		if rec.IsEmpty() {
			b.Dropped = append(b.Dropped, i)
			continue
		}
		b.Records = append(b.Records, rec)
	}
	return b
}

// pick returns the first alias with a non-blank value.
func pick(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			continue
		}
		if s := strings.TrimSpace(text(v)); s != "" {
			return s
		}
	}
	return ""
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := strings.TrimSpace(text(e)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
