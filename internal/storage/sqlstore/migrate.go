package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/storage/sqlstore/migrations"
)

const migrationTable = "schema_migrations"

// Migrate applies the embedded migrations for the store's dialect. Each file
// runs at most once and is recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.db, s.dialect, migrations.FS, string(s.dialect))
}

func applyMigrations(ctx context.Context, db *sql.DB, dialect Dialect, migrationFS fs.FS, root string) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		name := path.Join(root, file)
		applied, err := isApplied(ctx, db, dialect, name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}
		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, upSQL); err != nil && !isAlreadyExists(err) {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		record := dialect.rebind(`INSERT INTO ` + migrationTable + ` (name, applied_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`)
		if _, err := tx.ExecContext(ctx, record, name, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// extractUp returns the SQL in the "-- +migrate Up" section.
func extractUp(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, up)
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, down)
	if downIdx == -1 {
		return content[upIdx+len(up):]
	}
	return content[upIdx+len(up) : downIdx]
}

func isAlreadyExists(err error) bool {
	v := strings.ToLower(err.Error())
	return strings.Contains(v, "already exists") || strings.Contains(v, "duplicate column name")
}

func isApplied(ctx context.Context, db *sql.DB, dialect Dialect, name string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, dialect.rebind(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`), name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
