package project

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/streetworks-impact/internal/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockKey serialises concurrent migrate runs.
const migrationLockKey = 7211504

// Migrate applies pending SQL migrations in filename order, recording each
// in collaboration.schema_migrations.
func Migrate(ctx context.Context, pool db.Pool) error {
	log := zap.L().With(zap.String("component", "project.migrate"))

	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return eris.Wrap(err, "project: acquire migration lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockKey); err != nil {
			log.Warn("project: release migration lock", zap.Error(err))
		}
	}()

	if _, err := pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS collaboration;
		CREATE TABLE IF NOT EXISTS collaboration.schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return eris.Wrap(err, "project: ensure migration table")
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "project: read migration %s", name)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "project: apply migration %s", name)
		}
		if _, err := pool.Exec(ctx,
			"INSERT INTO collaboration.schema_migrations (filename) VALUES ($1)", name,
		); err != nil {
			return eris.Wrapf(err, "project: record migration %s", name)
		}
		log.Info("migration applied", zap.String("file", name))
	}
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "project: read migration dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func appliedMigrations(ctx context.Context, pool db.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM collaboration.schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "project: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "project: scan migration row")
		}
		applied[name] = true
	}
	return applied, eris.Wrap(rows.Err(), "project: iterate migration rows")
}
