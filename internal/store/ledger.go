package store

import (
	"context"
	"time"

	"github.com/automaton-run/automaton/internal/core"
)

// AppendLedgerRow records one completed inference call. The ledger is
// append-only; nothing ever updates or deletes a row here.
func (db *DB) AppendLedgerRow(ctx context.Context, row core.CostLedgerRow) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cost_ledger (timestamp, model_id, task_kind, tokens_in, tokens_out, cost_hundredth_cents, tier)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.Timestamp, row.ModelID, row.TaskKind, row.TokensIn, row.TokensOut, row.CostHundredthCents, row.Tier,
	)
	return err
}

// HourlySpendCents sums cost_hundredth_cents for the rolling 60 minutes
// ending at now — the Router's budget-enforcement input and one of the
// Survival Controller's two signals.
func (db *DB) HourlySpendCents(ctx context.Context, now time.Time) (int64, error) {
	var sum int64
	row := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_hundredth_cents), 0) FROM cost_ledger WHERE timestamp > ?`,
		now.Add(-time.Hour),
	)
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
