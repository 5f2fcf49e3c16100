package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/automaton-run/automaton/internal/core"
)

// UpsertModel inserts or refreshes a model registry row.
func (db *DB) UpsertModel(ctx context.Context, m core.ModelRegistryRow) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO model_registry (model_id, provider, tier_minimum, cost_per_1k_input, cost_per_1k_output, max_tokens, context_window, supports_tools, enabled, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(model_id) DO UPDATE SET
			provider = excluded.provider,
			tier_minimum = excluded.tier_minimum,
			cost_per_1k_input = excluded.cost_per_1k_input,
			cost_per_1k_output = excluded.cost_per_1k_output,
			max_tokens = excluded.max_tokens,
			context_window = excluded.context_window,
			supports_tools = excluded.supports_tools,
			enabled = excluded.enabled,
			last_seen = excluded.last_seen`,
		m.ModelID, m.Provider, m.TierMinimum, m.CostPer1kInput, m.CostPer1kOutput, m.MaxTokens, m.ContextWindow, m.SupportsTools, m.Enabled, m.LastSeen,
	)
	return err
}

// TouchModelLastSeen updates a model's last_seen after a successful call.
func (db *DB) TouchModelLastSeen(ctx context.Context, modelID string, at time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE model_registry SET last_seen = ? WHERE model_id = ?`, at, modelID)
	return err
}

// Model loads a single registry row by id.
func (db *DB) Model(ctx context.Context, modelID string) (core.ModelRegistryRow, bool, error) {
	row := db.QueryRowContext(ctx,
		`SELECT model_id, provider, tier_minimum, cost_per_1k_input, cost_per_1k_output, max_tokens, context_window, supports_tools, enabled, last_seen
		 FROM model_registry WHERE model_id = ?`, modelID,
	)
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return core.ModelRegistryRow{}, false, nil
	}
	if err != nil {
		return core.ModelRegistryRow{}, false, err
	}
	return m, true, nil
}

// AllModels returns every registry row, for matrix candidate resolution.
func (db *DB) AllModels(ctx context.Context) ([]core.ModelRegistryRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT model_id, provider, tier_minimum, cost_per_1k_input, cost_per_1k_output, max_tokens, context_window, supports_tools, enabled, last_seen
		 FROM model_registry ORDER BY model_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ModelRegistryRow
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanModel(r scanner) (core.ModelRegistryRow, error) {
	var m core.ModelRegistryRow
	var lastSeen sql.NullTime
	if err := r.Scan(&m.ModelID, &m.Provider, &m.TierMinimum, &m.CostPer1kInput, &m.CostPer1kOutput, &m.MaxTokens, &m.ContextWindow, &m.SupportsTools, &m.Enabled, &lastSeen); err != nil {
		return m, err
	}
	if lastSeen.Valid {
		m.LastSeen = lastSeen.Time
	}
	return m, nil
}
