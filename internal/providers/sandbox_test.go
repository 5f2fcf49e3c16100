package providers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalSandbox_ExecCapturesStdoutAndExitCode(t *testing.T) {
	sandbox, err := NewLocalSandbox(t.TempDir())
	require.NoError(t, err)

	result, err := sandbox.Exec(context.Background(), "echo hello", 5000)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Contains(t, result.Stdout, "hello")
}

func TestLocalSandbox_ExecReportsNonZeroExitCodeWithoutError(t *testing.T) {
	sandbox, err := NewLocalSandbox(t.TempDir())
	require.NoError(t, err)

	result, err := sandbox.Exec(context.Background(), "exit 7", 5000)
	require.NoError(t, err)
	require.Equal(t, 7, result.ExitCode)
}

func TestLocalSandbox_WriteAndReadFileRoundTrip(t *testing.T) {
	sandbox, err := NewLocalSandbox(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sandbox.WriteFile(ctx, filepath.Join("notes", "a.txt"), "hello world"))
	content, err := sandbox.ReadFile(ctx, filepath.Join("notes", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", content)
}

func TestLocalSandbox_RejectsPathEscapingBaseDir(t *testing.T) {
	sandbox, err := NewLocalSandbox(t.TempDir())
	require.NoError(t, err)

	_, err = sandbox.ReadFile(context.Background(), "../../etc/passwd")
	require.Error(t, err)
}

func TestLocalSandbox_ExposePortIsUnsupported(t *testing.T) {
	sandbox, err := NewLocalSandbox(t.TempDir())
	require.NoError(t, err)

	_, err = sandbox.ExposePort(context.Background(), 8080)
	require.Error(t, err)
}
