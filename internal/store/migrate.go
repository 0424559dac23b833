package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

// Migrate applies pending SQL migrations from the given filesystem in
// lexical filename order. Each migration runs in its own transaction; a
// failing statement rolls that migration back entirely. Applied versions
// are tracked in schema_migrations and skipped on later runs.
func (s *PostgresStore) Migrate(ctx context.Context, migrationsFS fs.FS) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	filenames, err := fs.Glob(migrationsFS, "*.sql")
	if err != nil {
		return fmt.Errorf("reading migration files: %w", err)
	}
	sort.Strings(filenames)

	for _, filename := range filenames {
		var applied bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			filename,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration %s: %w", filename, err)
		}
		if applied {
			slog.Debug("migration already applied, skipping", "version", filename)
			continue
		}

		if err := s.applyMigration(ctx, migrationsFS, filename); err != nil {
			return err
		}
		slog.Info("migration applied", "version", filename)
	}

	return nil
}

// applyMigration runs one migration file inside its own transaction and
// records the version as applied.
func (s *PostgresStore) applyMigration(ctx context.Context, migrationsFS fs.FS, filename string) error {
	sql, err := fs.ReadFile(migrationsFS, filename)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", filename, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("executing migration %s: %w", filename, err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", filename); err != nil {
		return fmt.Errorf("recording migration %s: %w", filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing migration %s: %w", filename, err)
	}
	return nil
}
