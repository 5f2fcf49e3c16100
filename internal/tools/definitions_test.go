package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type stubSandbox struct {
	execResult core.ExecResult
	execErr    error
	files      map[string]string
}

func (s *stubSandbox) Exec(ctx context.Context, command string, timeoutMs int64) (core.ExecResult, error) {
	return s.execResult, s.execErr
}
func (s *stubSandbox) WriteFile(ctx context.Context, path, content string) error {
	if s.files == nil {
		s.files = map[string]string{}
	}
	s.files[path] = content
	return nil
}
func (s *stubSandbox) ReadFile(ctx context.Context, path string) (string, error) {
	return s.files[path], nil
}
func (s *stubSandbox) ExposePort(ctx context.Context, port int) (string, error) {
	return "https://example.invalid", nil
}

func TestExecute_UnknownToolReturnsToolUnknown(t *testing.T) {
	e := NewExecutor(openTestDB(t), func() string { return "child-1" })
	_, err := e.Execute(context.Background(), "not_a_real_tool", "{}")
	require.ErrorIs(t, err, core.ErrToolUnknown)
}

func TestExecute_ExecCommandReturnsStdoutAndExitCode(t *testing.T) {
	e := NewExecutor(openTestDB(t), func() string { return "child-1" })
	e.Sandbox = &stubSandbox{execResult: core.ExecResult{Stdout: "hi\n", ExitCode: 0}}

	out, err := e.Execute(context.Background(), ToolExecCommand, `{"command":"echo hi"}`)
	require.NoError(t, err)
	require.Contains(t, out, "hi")
	require.Contains(t, out, `"exit_code":0`)
}

func TestExecute_ExecCommandWithoutSandboxConfiguredErrors(t *testing.T) {
	e := NewExecutor(openTestDB(t), func() string { return "child-1" })
	_, err := e.Execute(context.Background(), ToolExecCommand, `{"command":"echo hi"}`)
	require.Error(t, err)
}

func TestExecute_CreateJobAndUpdateStatusRoundTrip(t *testing.T) {
	e := NewExecutor(openTestDB(t), func() string { return "child-1" })

	out, err := e.Execute(context.Background(), ToolCreateJob, `{"title":"ship it","description":"do the thing"}`)
	require.NoError(t, err)
	require.Contains(t, out, `"id"`)

	_, err = e.Execute(context.Background(), ToolUpdateJobStatus, `{"id":1,"status":"closed"}`)
	require.NoError(t, err)

	jobs, err := e.DB.ListJobs(context.Background(), "self", "closed")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestExecute_RecordSelfModificationPersists(t *testing.T) {
	e := NewExecutor(openTestDB(t), func() string { return "child-1" })
	_, err := e.Execute(context.Background(), ToolRecordSelfModification,
		`{"file_paths":["internal/tools/wallet.go"],"change_type":"core","description":"widened ceiling"}`)
	require.NoError(t, err)

	mods, err := e.DB.ListSelfModifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	require.Equal(t, "core", mods[0].ChangeType)
}

func TestDefinitions_NamesMatchConstants(t *testing.T) {
	defs := Definitions()
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{
		ToolExecCommand, ToolWriteFile, ToolReadFile, ToolExposePort,
		ToolSendMessage, ToolReadContract, ToolTransferFunds, ToolSignTypedData,
		ToolSpawnChild, ToolPublishAgentCard, ToolWriteSkill, ToolCreateJob,
		ToolUpdateJobStatus, ToolRecordSelfModification,
	} {
		require.True(t, names[want], "missing definition for %s", want)
	}
}
