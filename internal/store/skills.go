package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/automaton-run/automaton/internal/core"
)

// UpsertSkill persists a loaded skill, replacing any prior row of the same
// name — skills are reloaded wholesale from disk on startup.
func (db *DB) UpsertSkill(ctx context.Context, s core.Skill) error {
	bins, err := json.Marshal(s.Requires.Bins)
	if err != nil {
		return err
	}
	env, err := json.Marshal(s.Requires.Env)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO skills (name, description, instructions, auto_activate, enabled, requires_bins, requires_env, source, installed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			instructions = excluded.instructions,
			auto_activate = excluded.auto_activate,
			enabled = excluded.enabled,
			requires_bins = excluded.requires_bins,
			requires_env = excluded.requires_env,
			source = excluded.source,
			installed_at = excluded.installed_at`,
		s.Name, s.Description, s.Instructions, s.AutoActivate, s.Enabled, string(bins), string(env), s.Source, s.InstalledAt,
	)
	return err
}

// ActiveSkills returns enabled, auto-activating skills for system-prompt
// composition — only these may appear in the Active Skill Instructions layer.
func (db *DB) ActiveSkills(ctx context.Context) ([]core.Skill, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, description, instructions, auto_activate, enabled, requires_bins, requires_env, source, installed_at
		 FROM skills WHERE enabled = 1 AND auto_activate = 1 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSkills(rows)
}

// AllSkills returns every loaded skill regardless of enabled/auto-activate
// state, for inspection tooling.
func (db *DB) AllSkills(ctx context.Context) ([]core.Skill, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, description, instructions, auto_activate, enabled, requires_bins, requires_env, source, installed_at
		 FROM skills ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSkills(rows)
}

func scanSkills(rows *sql.Rows) ([]core.Skill, error) {
	var out []core.Skill
	for rows.Next() {
		var s core.Skill
		var bins, env string
		if err := rows.Scan(&s.Name, &s.Description, &s.Instructions, &s.AutoActivate, &s.Enabled, &bins, &env, &s.Source, &s.InstalledAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(bins), &s.Requires.Bins); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(env), &s.Requires.Env); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
