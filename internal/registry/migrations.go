package registry

import (
	"context"
	"database/sql"
	"fmt"
)

type migrationStep struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// migrationSteps lists every schema step in ascending version order.
// Steps must stay re-appliable: a step that fails is retried on the next run.
var migrationSteps = []migrationStep{
	{version: 1, name: "base tables", apply: migrateBaseTables},
	{version: 2, name: "day marker and client label", apply: migrateDayMarker},
	{version: 3, name: "client task cache", apply: migrateClientTasks},
}

// LatestSchemaVersion is the user_version of a fully migrated database.
func LatestSchemaVersion() int {
	return migrationSteps[len(migrationSteps)-1].version
}

// Migrate applies every pending step. Each step commits together with its
// user_version bump, so a failed step never advances the version.
func (s *Store) Migrate(ctx context.Context) error {
	ctx = ensureContext(ctx)
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	for _, step := range migrationSteps {
		if current >= step.version {
			continue
		}
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := step.apply(ctx, tx); err != nil {
				return err
			}
			// PRAGMA does not accept bound parameters.
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.version))
			return err
		})
		if err != nil {
			return storageError("migrate", fmt.Sprintf("step %d (%s)", step.version, step.name), err)
		}
		current = step.version
	}
	return nil
}

// SchemaVersion reports the persisted schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ensureContext(ctx), "PRAGMA user_version").Scan(&version); err != nil {
		return 0, storageError("schema version", "read user_version", err)
	}
	return version, nil
}

func migrateBaseTables(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS Forums (
			id INTEGER PRIMARY KEY NOT NULL,
			na TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS Topics (
			id INTEGER PRIMARY KEY NOT NULL,
			ss INTEGER,
			na TEXT,
			hs TEXT,
			se REAL,
			si INTEGER,
			st INTEGER,
			rg INTEGER,
			dl INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS Seeders (
			id INTEGER PRIMARY KEY NOT NULL,
			` + historyColumnDefs() + `
		)`,
		`CREATE TABLE IF NOT EXISTS Keepers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic_id INTEGER NOT NULL,
			nick TEXT NOT NULL,
			UNIQUE (topic_id, nick)
		)`,
	}
	return execAll(ctx, tx, statements)
}

func migrateDayMarker(ctx context.Context, tx *sql.Tx) error {
	columns := []struct{ table, column, def string }{
		{"Topics", "ds", "INTEGER"},
		{"Topics", "qt", "REAL"},
		{"Topics", "cl", "TEXT"},
		{"Forums", "qt", "INTEGER"},
		{"Forums", "si", "INTEGER"},
	}
	for _, c := range columns {
		if err := addColumnIfAbsent(ctx, tx, c.table, c.column, c.def); err != nil {
			return err
		}
	}
	return nil
}

func migrateClientTasks(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ClientTasks (
			client_id TEXT NOT NULL,
			hash TEXT NOT NULL,
			topic_id INTEGER,
			name TEXT,
			status TEXT NOT NULL,
			seen_at TEXT NOT NULL,
			PRIMARY KEY (client_id, hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_client_tasks_hash ON ClientTasks(hash)`,
		`CREATE INDEX IF NOT EXISTS idx_topics_hash ON Topics(hs)`,
	}
	return execAll(ctx, tx, statements)
}

func execAll(ctx context.Context, tx *sql.Tx, statements []string) error {
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfAbsent(ctx context.Context, tx *sql.Tx, table, column, def string) error {
	exists, err := columnExists(ctx, tx, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def))
	return err
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
