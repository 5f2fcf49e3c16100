package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTurns_CreateAndTransition(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	turn := core.AgentTurn{
		ID:          "t1",
		Timestamp:   time.Now(),
		InputSource: "creator",
		Input:       "hello",
		State:       core.TurnBuilding,
	}
	require.NoError(t, db.CreateTurn(ctx, turn))

	require.NoError(t, db.UpdateTurnState(ctx, "t1", core.TurnAwaitingInference))
	require.NoError(t, db.UpdateTurnInference(ctx, "t1", "thinking...", "model-a", nil, 10, 20, 500))
	require.NoError(t, db.UpdateTurnState(ctx, "t1", core.TurnFinalized))

	got, err := db.GetTurn(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, core.TurnFinalized, got.State)
	require.Equal(t, "model-a", got.ModelID)
	require.Equal(t, int64(500), got.CostHundredthCents)
}

func TestTurns_UnfinalizedForCrashRecovery(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.CreateTurn(ctx, core.AgentTurn{ID: "a", Timestamp: time.Now(), State: core.TurnFinalized}))
	require.NoError(t, db.CreateTurn(ctx, core.AgentTurn{ID: "b", Timestamp: time.Now(), State: core.TurnDispatchingTools}))

	unfinalized, err := db.UnfinalizedTurns(ctx)
	require.NoError(t, err)
	require.Len(t, unfinalized, 1)
	require.Equal(t, "b", unfinalized[0].ID)
}

func TestInbox_InsertIfAbsentDedup(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	m := core.InboxMessage{ID: "ext-1", From: "alice", ReceivedAt: time.Now()}
	inserted, err := db.InsertInboxMessageIfAbsent(ctx, m)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = db.InsertInboxMessageIfAbsent(ctx, m)
	require.NoError(t, err)
	require.False(t, inserted, "re-inserting the same external id must be a no-op")

	got, ok, err := db.UnprocessedInboxMessage(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ext-1", got.ID)

	require.NoError(t, db.MarkInboxMessageProcessed(ctx, "ext-1"))
	_, ok, err = db.UnprocessedInboxMessage(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLedger_HourlySpend(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	now := time.Now()
	require.NoError(t, db.AppendLedgerRow(ctx, core.CostLedgerRow{
		Timestamp: now.Add(-30 * time.Minute), ModelID: "m", TaskKind: core.TaskAgentTurn, CostHundredthCents: 100, Tier: core.TierNormal,
	}))
	require.NoError(t, db.AppendLedgerRow(ctx, core.CostLedgerRow{
		Timestamp: now.Add(-90 * time.Minute), ModelID: "m", TaskKind: core.TaskAgentTurn, CostHundredthCents: 1000, Tier: core.TierNormal,
	}))

	sum, err := db.HourlySpendCents(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(100), sum, "entries older than 60 minutes must not count")
}

func TestSkills_ActiveOnlyIncludesEnabledAutoActivating(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertSkill(ctx, core.Skill{Name: "a", Enabled: true, AutoActivate: true, InstalledAt: time.Now()}))
	require.NoError(t, db.UpsertSkill(ctx, core.Skill{Name: "b", Enabled: true, AutoActivate: false, InstalledAt: time.Now()}))
	require.NoError(t, db.UpsertSkill(ctx, core.Skill{Name: "c", Enabled: false, AutoActivate: true, InstalledAt: time.Now()}))

	active, err := db.ActiveSkills(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "a", active[0].Name)
}

func TestJobs_ActiveJobExcludesSnoozed(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.CreateJob(ctx, "self", "ship the thing", "")
	require.NoError(t, err)
	require.NoError(t, db.SnoozeJob(ctx, id, time.Now().Add(time.Hour)))

	got, err := db.GetActiveJob(ctx, "self")
	require.NoError(t, err)
	require.Nil(t, got, "snoozed job must not be the active job")
}
