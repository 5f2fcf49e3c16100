// Package store is the automaton's single embedded relational state store.
// Every entity in §4 of SPEC_FULL.md — turns, inbox messages, skills, the
// cost ledger, the model registry, child automatons, jobs, and the
// self-modification log — is a table here. All access goes through *DB;
// there is no second datastore.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB with the automaton's query methods. Embedding gives every
// store file direct access to ExecContext/QueryContext/QueryRowContext
// without re-declaring them.
type DB struct {
	*sql.DB
}

// Open opens (creating if absent) the sqlite file at path, enables WAL mode
// for concurrent-reader/single-writer access, and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)"
	if strings.Contains(path, "?") {
		dsn = path + "&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// Single-writer discipline (§6 of SPEC_FULL.md) means we never need more
	// than one open connection for writes; capping pool size avoids
	// SQLITE_BUSY storms under modernc's driver.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
