package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/fleetpilot/fleetpilot/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded SQL migrations in filename order and
// records each applied file so reruns are no-ops.
type Migrator struct {
	db *DB
}

func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := m.migrationFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		if applied[file] {
			continue
		}
		if err := m.apply(ctx, file); err != nil {
			return fmt.Errorf("migration %s: %w", file, err)
		}
	}

	return nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func (m *Migrator) apply(ctx context.Context, filename string) error {
	content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{"migration": filename}).Info("Applying migration")

	return m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename)
		return err
	})
}
