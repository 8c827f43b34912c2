package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Supabase exposes a plain Postgres endpoint, so the hosted store is reached
// through lib/pq with the project's connection string.
const postgresSchema = `
	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		meta_description TEXT NOT NULL DEFAULT '',
		keywords JSONB,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sections (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		section_key TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content JSONB,
		order_index INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sections_page_order ON sections(page_id, order_index, seq);

	CREATE TABLE IF NOT EXISTS site_context (
		id INTEGER PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		goal TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		action TEXT NOT NULL,
		diff JSONB,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`

// NewPostgres connects to a Postgres (or Supabase) database and ensures the schema.
func NewPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{
		db: db,
		d: dialect{
			name:     "postgres",
			schema:   postgresSchema,
			seqCol:   "seq",
			numbered: true,
		},
	}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
