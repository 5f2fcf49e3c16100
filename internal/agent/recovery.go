package agent

import (
	"context"
	"fmt"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

// RecoverUnfinalizedTurns scans for turns left in building, awaiting_inference,
// or dispatching_tools by a crash or kill, and marks each aborted. Per §3's
// turn state machine, these are never resumed — RunTurn always starts a
// fresh turn on the next pending input. Returns the number of turns aborted.
func RecoverUnfinalizedTurns(ctx context.Context, db *store.DB) (int, error) {
	turns, err := db.UnfinalizedTurns(ctx)
	if err != nil {
		return 0, fmt.Errorf("agent: load unfinalized turns: %w", err)
	}

	aborted := 0
	for _, t := range turns {
		if t.State == core.TurnAborted {
			continue
		}
		if err := db.UpdateTurnState(ctx, t.ID, core.TurnAborted); err != nil {
			return 0, fmt.Errorf("agent: abort turn %s: %w", t.ID, err)
		}
		aborted++
	}

	return aborted, nil
}
