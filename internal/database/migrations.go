package database

import (
	"context"
	"fmt"
)

type migration struct {
	version    int
	name       string
	statements []string
}

// migrations lists schema changes per dialect, oldest first. Applied versions
// are recorded in schema_migrations and never re-run.
var migrations = map[Dialect][]migration{
	Postgres: {
		{
			version: 1,
			name:    "create_posts_table",
			statements: []string{
				`CREATE TABLE IF NOT EXISTS posts (
					id BIGSERIAL PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					content TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					CONSTRAINT posts_slug_key UNIQUE (slug)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)`,
			},
		},
	},
	MySQL: {
		{
			version: 1,
			name:    "create_posts_table",
			statements: []string{
				`CREATE TABLE IF NOT EXISTS posts (
					id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					content MEDIUMTEXT NOT NULL,
					created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
					UNIQUE KEY posts_slug_key (slug),
					KEY idx_posts_created_at (created_at)
				) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
			},
		},
	},
	SQLite: {
		{
			version: 1,
			name:    "create_posts_table",
			statements: []string{
				`CREATE TABLE IF NOT EXISTS posts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					slug TEXT NOT NULL UNIQUE,
					content TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)`,
			},
		},
	},
}

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	err = d.sql.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations[d.dialect] {
		if m.version <= current {
			continue
		}
		err := d.RunInTransaction(ctx, func(ctx context.Context) error {
			exec := d.Executor(ctx)
			for _, stmt := range m.statements {
				if _, err := exec.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := exec.ExecContext(ctx,
				d.dialect.Rebind("INSERT INTO schema_migrations (version, name) VALUES (?, ?)"),
				m.version, m.name,
			)
			if err != nil {
				return fmt.Errorf("record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
