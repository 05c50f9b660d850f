// Package catalog persists the enriched dataset: the JSON output file and
// an optional Postgres mirror for later serving.
package catalog

import (
	"context"

	"bookenrich/internal/book"
)

// Row is one enriched record as mirrored to the database.
type Row struct {
	Identity string
	Record   book.EnrichedRecord
}

// Rows pairs every record with its identity and skips those that have none.
func Rows(records []book.EnrichedRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		key := book.Identity(book.InputRecord{Title: r.Title, Author: r.Author, ISBN: r.ISBN})
		if key == "" {
			continue
		}
		rows = append(rows, Row{Identity: key, Record: r})
	}
	return rows
}

//go:generate mockgen -source=catalog.go -destination=mock_repository.go -package=catalog

type Repository interface {
	// UpsertBooks writes all rows in one transaction: either every row is
	// stored or none is.
	UpsertBooks(ctx context.Context, runID string, rows []Row) error
}
