package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) UpsertBooks(ctx context.Context, runID string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const upsertSQL = `
		INSERT INTO enriched_books (identity, position, title, author, isbn, cover_url, description, genre, source, run_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (identity) DO UPDATE SET
			position = EXCLUDED.position,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			isbn = EXCLUDED.isbn,
			cover_url = EXCLUDED.cover_url,
			description = EXCLUDED.description,
			genre = EXCLUDED.genre,
			source = EXCLUDED.source,
			run_id = EXCLUDED.run_id,
			updated_at = now()`

	var run any
	if runID != "" {
		run = runID
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		b := row.Record
		batch.Queue(upsertSQL, row.Identity, b.ID, b.Title, b.Author, b.ISBN, b.CoverURL, b.Description, b.Genre, b.Source, run)
	}
	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert enriched book: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("upsert enriched books: %w", err)
	}

	return tx.Commit(ctx)
}
