package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/strategicvalueplus/scout/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
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
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS search_runs_created_at ON search_runs (created_at);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, run *storage.SearchRun) error {
	query := `
	INSERT INTO search_runs (
		id, request_id, source, keywords, location, count, total, success, authenticated, duration_ms, created_at, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var authed sql.NullBool
	if run.Authenticated != nil {
		authed = sql.NullBool{Bool: *run.Authenticated, Valid: true}
	}

	_, err := b.db.ExecContext(ctx, query,
		run.ID,
		run.RequestID,
		run.Source,
		run.Keywords,
		run.Location,
		run.Count,
		run.Total,
		run.Success,
		authed,
		run.Duration.Milliseconds(),
		run.CreatedAt,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRun, error) {
	query := `SELECT id, request_id, source, keywords, location, count, total, success, authenticated, duration_ms, created_at, error FROM search_runs WHERE 1=1`
	args := []any{}

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Success != nil {
		query += ` AND success = ?`
		args = append(args, *filter.Success)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	// SQLite only accepts OFFSET after LIMIT; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query runs: %w", err)
	}
	defer rows.Close()

	var results []*storage.SearchRun
	for rows.Next() {
		var r storage.SearchRun
		var authed sql.NullBool
		var durationMs int64
		var errText sql.NullString

		err := rows.Scan(
			&r.ID, &r.RequestID, &r.Source, &r.Keywords, &r.Location, &r.Count, &r.Total,
			&r.Success, &authed, &durationMs, &r.CreatedAt, &errText,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan run: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Error = errText.String
		if authed.Valid {
			v := authed.Bool
			r.Authenticated = &v
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read runs: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
