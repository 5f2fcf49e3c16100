package llmrouter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

// fakeProvider lets each test script a per-model response without any
// network I/O.
type fakeProvider struct {
	calls   map[string]int
	respond func(model string, call int) (core.ChatResult, error)
}

func newFakeProvider(respond func(model string, call int) (core.ChatResult, error)) *fakeProvider {
	return &fakeProvider{calls: map[string]int{}, respond: respond}
}

func (f *fakeProvider) Chat(ctx context.Context, messages []core.Message, opts core.ChatOptions) (core.ChatResult, error) {
	f.calls[opts.Model]++
	return f.respond(opts.Model, f.calls[opts.Model])
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedModel(t *testing.T, db *store.DB, id string, enabled bool) {
	t.Helper()
	require.NoError(t, db.UpsertModel(context.Background(), core.ModelRegistryRow{
		ModelID: id, Provider: "fake", TierMinimum: core.TierDead, Enabled: enabled, MaxTokens: 4096,
	}))
}

func testMatrix() Matrix {
	return Matrix{
		core.TierNormal: {
			core.TaskAgentTurn: {Candidates: []string{"model-a", "model-b", "model-c"}, MaxTokens: 100, CeilingCents: -1},
		},
	}
}

func TestRouter_FallsBackAcrossDisabledAndFailingCandidates(t *testing.T) {
	db := openTestDB(t)
	seedModel(t, db, "model-a", true)
	seedModel(t, db, "model-b", false)
	seedModel(t, db, "model-c", true)

	provider := newFakeProvider(func(model string, call int) (core.ChatResult, error) {
		switch model {
		case "model-a":
			return core.ChatResult{}, newRetryableError(fmt.Errorf("%w: status 500", core.ErrProviderUnavailable), 0)
		case "model-c":
			return core.ChatResult{Message: "ok"}, nil
		}
		t.Fatalf("unexpected call to disabled model %s", model)
		return core.ChatResult{}, nil
	})

	router, err := New(db, testMatrix(), map[string]ProviderFactory{
		"fake": func() (core.Inference, error) { return provider, nil },
	}, Config{GlobalPerCallCeilingCents: -1, EnableModelFallback: true})
	require.NoError(t, err)
	router.now = func() time.Time { return time.Unix(0, 0).Add(72 * time.Hour) }

	result, err := router.Chat(context.Background(), Request{
		TaskKind: core.TaskAgentTurn, Tier: core.TierNormal, TierCeiling: -1,
	})
	require.NoError(t, err)
	require.Equal(t, "model-c", result.ModelID)
	require.Equal(t, 4, result.Attempts, "3 attempts on model-a, 1 on model-c")

	spend, err := db.HourlySpendCents(context.Background(), router.now())
	require.NoError(t, err)
	require.Equal(t, int64(0), spend, "only model-c succeeded and its seeded cost is zero, but exactly one ledger row must exist")

	var rowCount int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM cost_ledger`).Scan(&rowCount))
	require.Equal(t, 1, rowCount, "ledger entry only for the model that ultimately succeeded")
}

func TestRouter_BudgetExhaustedWhenNoCandidateFitsHourlyBudget(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.UpsertModel(context.Background(), core.ModelRegistryRow{
		ModelID: "model-a", Provider: "fake", TierMinimum: core.TierDead, Enabled: true,
		CostPer1kInput: 100_000, CostPer1kOutput: 100_000, MaxTokens: 4096,
	}))

	router, err := New(db, Matrix{
		core.TierNormal: {core.TaskAgentTurn: {Candidates: []string{"model-a"}, MaxTokens: 1000, CeilingCents: -1}},
	}, map[string]ProviderFactory{
		"fake": func() (core.Inference, error) { return newFakeProvider(nil), nil },
	}, Config{GlobalPerCallCeilingCents: -1, HourlyBudgetCents: 10})
	require.NoError(t, err)

	_, err = router.Chat(context.Background(), Request{TaskKind: core.TaskAgentTurn, Tier: core.TierNormal, TierCeiling: -1})
	require.ErrorIs(t, err, core.ErrBudgetExhausted)
}

func TestMinCeiling(t *testing.T) {
	require.Equal(t, int64(-1), minCeiling(-1, -1))
	require.Equal(t, int64(5), minCeiling(-1, 5))
	require.Equal(t, int64(5), minCeiling(5, -1))
	require.Equal(t, int64(3), minCeiling(3, 5))
}
