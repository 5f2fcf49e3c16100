package store

import (
	"context"
	"database/sql"
	"time"
)

// SetConfigValue stores a single overridable key, recording when it changed.
// Used for values the automaton records about itself at runtime (e.g. the
// latest credit and USDC balances, the social inbox cursor, the last
// heartbeat time) rather than ones only an operator sets via automaton.json.
func (db *DB) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// ConfigValue reads a single key; ok is false if never set.
func (db *DB) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
