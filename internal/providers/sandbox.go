// Package providers implements the concrete external-collaborator adapters
// behind core.SandboxExec, core.Social, core.WalletSigner, and core.ChainRPC.
// Grounded on the teacher's tools.ExecuteRegisteredTool (os/exec,
// bytes.Buffer capture, ExitError unwrap) for the sandbox, and on the pack's
// coder/websocket dependency for the social relay.
package providers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/automaton-run/automaton/internal/core"
)

// LocalSandbox implements core.SandboxExec by running commands directly on
// the host, confined to a base directory for file operations. This is the
// single-tenant development sandbox; a multi-tenant deployment would swap
// this for a container- or VM-backed implementation behind the same
// interface — the Turn Engine and scheduler tasks never see the difference.
type LocalSandbox struct {
	BaseDir string
}

// NewLocalSandbox constructs a LocalSandbox rooted at baseDir, creating it
// if necessary.
func NewLocalSandbox(baseDir string) (*LocalSandbox, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("providers: create sandbox base dir: %w", err)
	}
	return &LocalSandbox{BaseDir: baseDir}, nil
}

// Exec runs command through "sh -c" with a hard timeout, capturing stdout
// and stderr separately. Grounded on the teacher's
// ExecuteRegisteredTool(ctx, binaryPath, argsJSON, envVars).
func (s *LocalSandbox) Exec(ctx context.Context, command string, timeoutMs int64) (core.ExecResult, error) {
	if timeoutMs <= 0 {
		timeoutMs = 30_000
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = s.BaseDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result := core.ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if runErr == nil {
		return result, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, fmt.Errorf("providers: exec %q: %w", command, runErr)
}

// WriteFile writes content to a path resolved against BaseDir. Paths that
// escape BaseDir via ".." are rejected.
func (s *LocalSandbox) WriteFile(ctx context.Context, path, content string) error {
	resolved, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("providers: mkdir for %s: %w", path, err)
	}
	return os.WriteFile(resolved, []byte(content), 0o644)
}

// ReadFile reads a path resolved against BaseDir.
func (s *LocalSandbox) ReadFile(ctx context.Context, path string) (string, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("providers: read %s: %w", path, err)
	}
	return string(b), nil
}

// ExposePort is unimplemented for LocalSandbox: there is no reverse proxy or
// tunnel infrastructure in scope here (installer UX and hosting plumbing are
// explicit Non-goals). A deployment that needs real port exposure supplies a
// different core.SandboxExec implementation.
func (s *LocalSandbox) ExposePort(ctx context.Context, port int) (string, error) {
	return "", fmt.Errorf("providers: LocalSandbox does not support port exposure (port %d)", port)
}

func (s *LocalSandbox) resolve(path string) (string, error) {
	joined := filepath.Join(s.BaseDir, path)
	clean := filepath.Clean(joined)
	if clean != s.BaseDir && !strings.HasPrefix(clean, s.BaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("providers: path %q escapes sandbox base dir", path)
	}
	return clean, nil
}
