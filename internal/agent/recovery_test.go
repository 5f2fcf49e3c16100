package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
)

func TestRecoverUnfinalizedTurns_AbortsEveryNonFinalizedTurn(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	mustCreate := func(id string, state core.TurnState) {
		require.NoError(t, db.CreateTurn(ctx, core.AgentTurn{ID: id, Timestamp: time.Now(), State: state}))
	}
	mustCreate("t-building", core.TurnBuilding)
	mustCreate("t-awaiting", core.TurnAwaitingInference)
	mustCreate("t-dispatching", core.TurnDispatchingTools)
	mustCreate("t-done", core.TurnFinalized)

	n, err := RecoverUnfinalizedTurns(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	for _, id := range []string{"t-building", "t-awaiting", "t-dispatching"} {
		turn, err := db.GetTurn(ctx, id)
		require.NoError(t, err)
		require.Equal(t, core.TurnAborted, turn.State, "turn %s must be aborted", id)
	}

	done, err := db.GetTurn(ctx, "t-done")
	require.NoError(t, err)
	require.Equal(t, core.TurnFinalized, done.State, "finalized turn must be untouched")
}

func TestRecoverUnfinalizedTurns_NoUnfinalizedTurnsIsANoop(t *testing.T) {
	db := openTestDB(t)
	n, err := RecoverUnfinalizedTurns(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
