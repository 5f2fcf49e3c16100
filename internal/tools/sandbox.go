package tools

import (
	"context"
	"fmt"

	"github.com/automaton-run/automaton/internal/agent"
)

func (e *Executor) requireSandbox() error {
	if e.Sandbox == nil {
		return fmt.Errorf("tools: sandbox provider not configured")
	}
	return nil
}

func (e *Executor) execCommand(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireSandbox(); err != nil {
		return "", err
	}
	var args struct {
		Command   string `json:"command"`
		TimeoutMs int64  `json:"timeout_ms"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	if args.TimeoutMs <= 0 {
		args.TimeoutMs = 30000
	}

	result, err := e.Sandbox.Exec(ctx, args.Command, args.TimeoutMs)
	if err != nil {
		// The sandbox being unreachable (as opposed to the command itself
		// failing, which is reported via ExitCode) is the one fatal sandbox
		// condition per spec.md §7's "sandbox lost" example.
		return "", &agent.FatalToolError{Err: fmt.Errorf("sandbox exec: %w", err)}
	}
	return jsonResult(map[string]any{"stdout": result.Stdout, "stderr": result.Stderr, "exit_code": result.ExitCode})
}

func (e *Executor) writeFile(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireSandbox(); err != nil {
		return "", err
	}
	var args struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	if err := e.Sandbox.WriteFile(ctx, args.Path, args.Content); err != nil {
		return "", fmt.Errorf("tools: write_file: %w", err)
	}
	return jsonResult(map[string]any{"ok": true})
}

func (e *Executor) readFile(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireSandbox(); err != nil {
		return "", err
	}
	var args struct {
		Path string `json:"path"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	content, err := e.Sandbox.ReadFile(ctx, args.Path)
	if err != nil {
		return "", fmt.Errorf("tools: read_file: %w", err)
	}
	return jsonResult(map[string]any{"content": content})
}

func (e *Executor) exposePort(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireSandbox(); err != nil {
		return "", err
	}
	var args struct {
		Port int `json:"port"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	url, err := e.Sandbox.ExposePort(ctx, args.Port)
	if err != nil {
		return "", fmt.Errorf("tools: expose_port: %w", err)
	}
	return jsonResult(map[string]any{"url": url})
}
