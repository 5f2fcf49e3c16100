package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrate creates every table the automaton needs if absent, so it is safe
// to run on every open. It issues no ALTER TABLE statements.
func migrate(ctx context.Context, db *DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agent_turns (
			id                    TEXT PRIMARY KEY,
			timestamp             DATETIME NOT NULL,
			input_source          TEXT NOT NULL DEFAULT '',
			input                 TEXT NOT NULL DEFAULT '',
			thinking              TEXT NOT NULL DEFAULT '',
			tool_calls            TEXT NOT NULL DEFAULT '[]',
			tokens_in             INTEGER NOT NULL DEFAULT 0,
			tokens_out            INTEGER NOT NULL DEFAULT 0,
			model_id              TEXT NOT NULL DEFAULT '',
			cost_hundredth_cents  INTEGER NOT NULL DEFAULT 0,
			state                 TEXT NOT NULL DEFAULT 'building'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_turns_timestamp ON agent_turns(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_turns_state ON agent_turns(state)`,

		`CREATE TABLE IF NOT EXISTS inbox_messages (
			id           TEXT PRIMARY KEY,
			from_addr    TEXT NOT NULL,
			to_addr      TEXT NOT NULL DEFAULT '',
			content      TEXT NOT NULL DEFAULT '',
			signed_at    DATETIME,
			received_at  DATETIME NOT NULL,
			processed    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inbox_processed ON inbox_messages(processed)`,

		`CREATE TABLE IF NOT EXISTS skills (
			name           TEXT PRIMARY KEY,
			description    TEXT NOT NULL DEFAULT '',
			instructions   TEXT NOT NULL DEFAULT '',
			auto_activate  INTEGER NOT NULL DEFAULT 0,
			enabled        INTEGER NOT NULL DEFAULT 0,
			requires_bins  TEXT NOT NULL DEFAULT '[]',
			requires_env   TEXT NOT NULL DEFAULT '[]',
			source         TEXT NOT NULL DEFAULT '',
			installed_at   DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS cost_ledger (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp             DATETIME NOT NULL,
			model_id              TEXT NOT NULL,
			task_kind             TEXT NOT NULL,
			tokens_in             INTEGER NOT NULL,
			tokens_out            INTEGER NOT NULL,
			cost_hundredth_cents  INTEGER NOT NULL,
			tier                  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cost_ledger_timestamp ON cost_ledger(timestamp)`,

		`CREATE TABLE IF NOT EXISTS model_registry (
			model_id           TEXT PRIMARY KEY,
			provider           TEXT NOT NULL,
			tier_minimum       TEXT NOT NULL DEFAULT 'dead',
			cost_per_1k_input  INTEGER NOT NULL DEFAULT 0,
			cost_per_1k_output INTEGER NOT NULL DEFAULT 0,
			max_tokens         INTEGER NOT NULL DEFAULT 0,
			context_window     INTEGER NOT NULL DEFAULT 0,
			supports_tools     INTEGER NOT NULL DEFAULT 0,
			enabled            INTEGER NOT NULL DEFAULT 1,
			last_seen          DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS child_automatons (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			sandbox_id  TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'unknown',
			created_at  DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS config (
			key         TEXT PRIMARY KEY,
			value       TEXT NOT NULL,
			updated_at  DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id         TEXT NOT NULL DEFAULT 'self',
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'open',
			blocked_reason  TEXT,
			snoozed_until   DATETIME,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(user_id, status)`,

		`CREATE TABLE IF NOT EXISTS self_modifications (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			file_paths   TEXT NOT NULL DEFAULT '[]',
			change_type  TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			context      TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS scheduler_tasks (
			name               TEXT PRIMARY KEY,
			cron_expr          TEXT NOT NULL,
			enabled            INTEGER NOT NULL DEFAULT 1,
			critical_allowed   INTEGER NOT NULL DEFAULT 0,
			next_fire          DATETIME,
			consecutive_fails  INTEGER NOT NULL DEFAULT 0,
			degraded           INTEGER NOT NULL DEFAULT 0,
			last_run_at        DATETIME,
			last_error         TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}

	return nil
}

// columnExists reports whether table has a column named col, for guarding
// an additive ALTER TABLE against running twice on a database that already
// has the column. migrate does not call it.
func columnExists(ctx context.Context, db *DB, table, col string) (bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == col {
			return true, nil
		}
	}
	return false, rows.Err()
}
