package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gametime/schemas"
)

// migrate applies embedded migration files in lexical order, tracking
// applied files in schema_migrations.
func (db *DB) migrate(ctx context.Context) error {
	conn := db.Conn()

	if _, err := conn.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("db.ExecContext(create schema_migrations) > %w", err)
	}

	entries, err := schemas.Migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("schemas.Migrations.ReadDir() > %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		if err := conn.GetContext(ctx, &applied,
			"SELECT count(*) FROM schema_migrations WHERE name = ?", name); err != nil {
			return fmt.Errorf("db.GetContext(schema_migrations) > %w", err)
		}
		if applied > 0 {
			continue
		}

		contents, err := schemas.Migrations.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("schemas.Migrations.ReadFile(%s) > %w", name, err)
		}

		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTxx() > %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("tx.ExecContext(%s) > %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (name) VALUES (?)", name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("tx.ExecContext(record %s) > %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit(%s) > %w", name, err)
		}

		slog.Default().Info("applied migration", "name", name)
	}

	return nil
}
