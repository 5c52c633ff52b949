package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/strategicvalueplus/scout/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS search_runs (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	source TEXT NOT NULL,
	keywords TEXT NOT NULL,
	location TEXT NOT NULL,
	count INTEGER NOT NULL,
	total INTEGER NOT NULL,
	success BOOLEAN NOT NULL,
	authenticated BOOLEAN,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS search_runs_created_at ON search_runs (created_at);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, run *storage.SearchRun) error {
	query := `
	INSERT INTO search_runs (
		id, request_id, source, keywords, location, count, total, success, authenticated, duration_ms, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := b.pool.Exec(ctx, query,
		run.ID,
		run.RequestID,
		run.Source,
		run.Keywords,
		run.Location,
		run.Count,
		run.Total,
		run.Success,
		run.Authenticated,
		run.Duration.Milliseconds(),
		run.CreatedAt,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRun, error) {
	query := `SELECT id, request_id, source, keywords, location, count, total, success, authenticated, duration_ms, created_at, COALESCE(error, '') FROM search_runs WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, paramCount)
		args = append(args, filter.Source)
		paramCount++
	}
	if filter.Success != nil {
		query += fmt.Sprintf(` AND success = $%d`, paramCount)
		args = append(args, *filter.Success)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query runs: %w", err)
	}
	defer rows.Close()

	var results []*storage.SearchRun
	for rows.Next() {
		var r storage.SearchRun
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.RequestID, &r.Source, &r.Keywords, &r.Location, &r.Count, &r.Total,
			&r.Success, &r.Authenticated, &durationMs, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read runs: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
