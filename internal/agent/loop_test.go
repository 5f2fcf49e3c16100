package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/llmrouter"
	"github.com/automaton-run/automaton/internal/store"
)

type fakeProvider struct {
	respond func(messages []core.Message) (core.ChatResult, error)
}

func (f *fakeProvider) Chat(ctx context.Context, messages []core.Message, opts core.ChatOptions) (core.ChatResult, error) {
	return f.respond(messages)
}

type fakeTools struct {
	execute func(ctx context.Context, name, argsJSON string) (string, error)
	calls   []string
}

func (f *fakeTools) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	f.calls = append(f.calls, name)
	return f.execute(ctx, name, argsJSON)
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRouter(t *testing.T, db *store.DB, provider core.Inference) *llmrouter.Router {
	t.Helper()
	require.NoError(t, db.UpsertModel(context.Background(), core.ModelRegistryRow{
		ModelID: "model-a", Provider: "fake", TierMinimum: core.TierDead, Enabled: true, MaxTokens: 4096,
	}))
	matrix := llmrouter.Matrix{
		core.TierNormal: {
			core.TaskAgentTurn:     {Candidates: []string{"model-a"}, MaxTokens: 100, CeilingCents: -1},
			core.TaskSummarization: {Candidates: []string{"model-a"}, MaxTokens: 100, CeilingCents: -1},
		},
	}
	router, err := llmrouter.New(db, matrix, map[string]llmrouter.ProviderFactory{
		"fake": func() (core.Inference, error) { return provider, nil },
	}, llmrouter.Config{GlobalPerCallCeilingCents: -1, EnableModelFallback: true})
	require.NoError(t, err)
	return router
}

func testEngine(t *testing.T, db *store.DB, provider core.Inference, tools core.ToolExecutor) *Engine {
	t.Helper()
	router := newTestRouter(t, db, provider)
	buildPrompt := func(ctx context.Context) (string, error) { return "system prompt", nil }
	tierFn := func() core.Tier { return core.TierNormal }
	return NewEngine(db, router, tools, buildPrompt, tierFn,
		WithCreatorMessagePath(filepath.Join(t.TempDir(), "creator_message.md")))
}

func TestRunTurn_NoPendingInputReturnsFalse(t *testing.T) {
	db := openTestDB(t)
	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		t.Fatal("router should not be called with no pending input")
		return core.ChatResult{}, nil
	}}, &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) { return "", nil }})

	ran, err := engine.RunTurn(context.Background(), nil)
	require.NoError(t, err)
	require.False(t, ran)
}

func TestRunTurn_CreatorMessageTakesPriorityAndConsumesFile(t *testing.T) {
	db := openTestDB(t)
	tools := &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) { return "done", nil }}
	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		return core.ChatResult{Message: "ack", Usage: core.Usage{TokensIn: 10, TokensOut: 5}}, nil
	}}, tools)

	require.NoError(t, os.WriteFile(engine.creatorMessagePath, []byte("hello from the creator"), 0o644))

	ran, err := engine.RunTurn(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, ran)

	_, err = os.Stat(engine.creatorMessagePath)
	require.True(t, errors.Is(err, os.ErrNotExist), "creator message file must be consumed")

	turns, err := db.RecentTurns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "creator", turns[0].InputSource)
	require.Equal(t, core.TurnFinalized, turns[0].State)
}

func TestRunTurn_InboxMessageConsumedAndMarkedProcessed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inserted, err := db.InsertInboxMessageIfAbsent(ctx, core.InboxMessage{
		ID: "msg-1", From: "alice", Content: "ping", ReceivedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, inserted)

	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		return core.ChatResult{Message: "ack"}, nil
	}}, &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) { return "", nil }})

	ran, err := engine.RunTurn(ctx, nil)
	require.NoError(t, err)
	require.True(t, ran)

	_, ok, err := db.UnprocessedInboxMessage(ctx)
	require.NoError(t, err)
	require.False(t, ok, "the only inbox message must now be marked processed")
}

func TestRunTurn_WakeSignalUsedWhenNoOtherInputPending(t *testing.T) {
	db := openTestDB(t)
	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		return core.ChatResult{Message: "ack"}, nil
	}}, &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) { return "", nil }})

	ran, err := engine.RunTurn(context.Background(), &core.WakeSignal{Reason: "tier dropped to critical"})
	require.NoError(t, err)
	require.True(t, ran)

	turns, err := db.RecentTurns(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "wake", turns[0].InputSource)
}

func TestRunTurn_FatalToolErrorStopsDispatchAndAbortsTurn(t *testing.T) {
	db := openTestDB(t)
	calls := 0
	tools := &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) {
		calls++
		return "", &FatalToolError{Err: fmt.Errorf("sandbox unreachable")}
	}}
	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		return core.ChatResult{Message: "thinking", ToolCalls: []core.ToolCall{
			{ID: "1", Name: "read_file", Arguments: "{}"},
			{ID: "2", Name: "read_file", Arguments: "{}"},
		}}, nil
	}}, tools)

	require.NoError(t, os.WriteFile(engine.creatorMessagePath, []byte("do something"), 0o644))

	ran, err := engine.RunTurn(context.Background(), nil)
	require.True(t, ran)
	require.Error(t, err)
	require.Equal(t, 1, calls, "dispatch must stop after the first fatal tool error")

	turns, err := db.RecentTurns(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, core.TurnAborted, turns[0].State)
}

func TestRunTurn_SecondTrustBoundaryCallIsSkippedNotExecuted(t *testing.T) {
	db := openTestDB(t)
	executed := []string{}
	tools := &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) {
		executed = append(executed, name)
		return "ok", nil
	}}
	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		return core.ChatResult{Message: "thinking", ToolCalls: []core.ToolCall{
			{ID: "1", Name: "transfer_funds", Arguments: "{}"},
			{ID: "2", Name: "transfer_funds", Arguments: "{}"},
		}}, nil
	}}, tools)

	require.NoError(t, os.WriteFile(engine.creatorMessagePath, []byte("send funds twice"), 0o644))

	ran, err := engine.RunTurn(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, []string{"transfer_funds"}, executed, "only the first trust-boundary call may execute")

	turns, err := db.RecentTurns(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "", turns[0].ToolCalls[0].Error)
	require.NotEmpty(t, turns[0].ToolCalls[1].Error)
}

func TestRunTurn_NonFatalToolErrorContinuesDispatch(t *testing.T) {
	db := openTestDB(t)
	tools := &fakeTools{execute: func(ctx context.Context, name, args string) (string, error) {
		if name == "flaky" {
			return "", fmt.Errorf("transient glitch")
		}
		return "ok", nil
	}}
	engine := testEngine(t, db, &fakeProvider{respond: func(m []core.Message) (core.ChatResult, error) {
		return core.ChatResult{Message: "thinking", ToolCalls: []core.ToolCall{
			{ID: "1", Name: "flaky", Arguments: "{}"},
			{ID: "2", Name: "read_file", Arguments: "{}"},
		}}, nil
	}}, tools)

	require.NoError(t, os.WriteFile(engine.creatorMessagePath, []byte("try a flaky tool"), 0o644))

	ran, err := engine.RunTurn(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, ran)

	turns, err := db.RecentTurns(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, core.TurnFinalized, turns[0].State)
	require.NotEmpty(t, turns[0].ToolCalls[0].Error)
	require.Equal(t, "ok", turns[0].ToolCalls[1].Result)
}
