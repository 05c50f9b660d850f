package pipeline

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) error {
	const sql = `
		INSERT INTO enrich_runs (id, started_at, status, input_path, output_path)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, sql, run.ID, run.StartedAt, run.Status, run.InputPath, run.OutputPath)
	return err
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE enrich_runs SET
			finished_at = $1,
			status = $2,
			records_input = $3,
			records_dropped = $4,
			records_enriched = $5,
			cache_hits = $6,
			with_cover = $7,
			with_description = $8,
			unknown_genre = $9,
			error = $10
		WHERE id = $11`

	_, err := r.db.Exec(ctx, sql, run.FinishedAt, run.Status, run.Input, run.Dropped, run.Enriched,
		run.CacheHits, run.WithCover, run.WithDescription, run.UnknownGenre, run.Error, run.ID)
	return err
}

// LogRepo keeps no state; it is used when no database is configured and
// the run summary only goes to the log.
type LogRepo struct{}

func (LogRepo) CreateRun(context.Context, *Run) error { return nil }
func (LogRepo) UpdateRun(context.Context, *Run) error { return nil }
