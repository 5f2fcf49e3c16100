package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/automaton-run/automaton/internal/core"
)

// CreateTurn inserts a new turn in the building state.
func (db *DB) CreateTurn(ctx context.Context, t core.AgentTurn) error {
	callsJSON, err := json.Marshal(t.ToolCalls)
	if err != nil {
		return fmt.Errorf("marshal tool calls: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO agent_turns (id, timestamp, input_source, input, thinking, tool_calls, tokens_in, tokens_out, model_id, cost_hundredth_cents, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Timestamp, t.InputSource, t.Input, t.Thinking, string(callsJSON), t.TokensIn, t.TokensOut, t.ModelID, t.CostHundredthCents, t.State,
	)
	return err
}

// UpdateTurnState transitions a turn's state; called at each step of the
// building → awaiting_inference → dispatching_tools → finalized machine.
func (db *DB) UpdateTurnState(ctx context.Context, id string, state core.TurnState) error {
	_, err := db.ExecContext(ctx, `UPDATE agent_turns SET state = ? WHERE id = ?`, state, id)
	return err
}

// UpdateTurnInference records the model's response once inference returns.
func (db *DB) UpdateTurnInference(ctx context.Context, id, thinking, modelID string, toolCalls []core.ToolCall, tokensIn, tokensOut, costHundredthCents int64) error {
	callsJSON, err := json.Marshal(toolCalls)
	if err != nil {
		return fmt.Errorf("marshal tool calls: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`UPDATE agent_turns SET thinking = ?, model_id = ?, tool_calls = ?, tokens_in = ?, tokens_out = ?, cost_hundredth_cents = ? WHERE id = ?`,
		thinking, modelID, string(callsJSON), tokensIn, tokensOut, costHundredthCents, id,
	)
	return err
}

// UpdateTurnToolCalls persists tool-call results as they complete during
// dispatching_tools.
func (db *DB) UpdateTurnToolCalls(ctx context.Context, id string, toolCalls []core.ToolCall) error {
	callsJSON, err := json.Marshal(toolCalls)
	if err != nil {
		return fmt.Errorf("marshal tool calls: %w", err)
	}
	_, err = db.ExecContext(ctx, `UPDATE agent_turns SET tool_calls = ? WHERE id = ?`, string(callsJSON), id)
	return err
}

// RecentTurns returns the last n turns, oldest first, for prompt assembly.
func (db *DB) RecentTurns(ctx context.Context, n int) ([]core.AgentTurn, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, timestamp, input_source, input, thinking, tool_calls, tokens_in, tokens_out, model_id, cost_hundredth_cents, state
		 FROM agent_turns ORDER BY timestamp DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []core.AgentTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// UnfinalizedTurns returns every turn not in the finalized state, for
// crash-recovery scanning at startup.
func (db *DB) UnfinalizedTurns(ctx context.Context) ([]core.AgentTurn, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, timestamp, input_source, input, thinking, tool_calls, tokens_in, tokens_out, model_id, cost_hundredth_cents, state
		 FROM agent_turns WHERE state != ? ORDER BY timestamp ASC`, core.TurnFinalized,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []core.AgentTurn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(r scanner) (core.AgentTurn, error) {
	var t core.AgentTurn
	var callsJSON string
	if err := r.Scan(&t.ID, &t.Timestamp, &t.InputSource, &t.Input, &t.Thinking, &callsJSON, &t.TokensIn, &t.TokensOut, &t.ModelID, &t.CostHundredthCents, &t.State); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(callsJSON), &t.ToolCalls); err != nil {
		return t, fmt.Errorf("unmarshal tool calls for turn %s: %w", t.ID, err)
	}
	return t, nil
}

// GetTurn loads a single turn by id.
func (db *DB) GetTurn(ctx context.Context, id string) (core.AgentTurn, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, timestamp, input_source, input, thinking, tool_calls, tokens_in, tokens_out, model_id, cost_hundredth_cents, state
		 FROM agent_turns WHERE id = ?`, id,
	)
	t, err := scanTurn(row)
	if err == sql.ErrNoRows {
		return t, fmt.Errorf("turn %s: %w", id, sql.ErrNoRows)
	}
	return t, err
}
