// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — works everywhere Go works.
//
// SCHEMA TOLERANCE:
// The app_users relation is deployed with varying subsets of its optional
// columns (environments migrate at different speeds). This package discovers
// the actual column set once per process (pragma_table_info), caches it in a
// store-owned schemaCache, and generates every query from the intersection of
// the canonical field list and the discovered columns. Only the id and email
// columns are mandatory.
package sqlite

import (
	"database/sql"
	"fmt"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn   *sql.DB
	schema *schemaCache
}

// New creates a SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/profilehub.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.migrate(); err != nil {
		db.conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// open creates the connection pool without migrating. Tests use it directly
// to set up partial schemas that exercise the schema-tolerant paths.
func open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces an immediate connection so a bad path or permissions issue
	// surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// relevant for a web server where requests hit the DB in parallel.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return &DB{conn: conn, schema: newSchemaCache()}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate brings the app_users relation up to the full schema.
//
// The base table carries only the mandatory columns; every optional column is
// added with an idempotent ALTER TABLE. That mirrors how the relation evolved
// in deployed environments — and means a database created by an older build
// (missing some optional columns) is upgraded in place.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS app_users (
			id    TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE
		);
	`)
	if err != nil {
		return fmt.Errorf("creating app_users table: %w", err)
	}

	for _, f := range userFields {
		if f.required {
			continue
		}
		def := "TEXT"
		if f.column == "google_sub" {
			def = "TEXT UNIQUE"
		}
		if err := db.addColumnIfNotExists(userTable, f.column, def); err != nil {
			return fmt.Errorf("adding %s to app_users: %w", f.column, err)
		}
	}

	// A migration just changed the relation; any previously discovered
	// column set is stale.
	db.InvalidateSchemaCache()

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already
// exist. Makes ALTER TABLE migrations idempotent — safe to run repeatedly.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
