package tools

import (
	"context"
	"fmt"

	"github.com/automaton-run/automaton/internal/core"
)

func (e *Executor) writeSkill(ctx context.Context, argumentsJSON string) (string, error) {
	if e.Skills == nil {
		return "", fmt.Errorf("tools: skills manager not configured")
	}
	var args struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Instructions string `json:"instructions"`
		AutoActivate bool   `json:"auto_activate"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}

	skill := core.Skill{
		Name:         args.Name,
		Description:  args.Description,
		Instructions: args.Instructions,
		AutoActivate: args.AutoActivate,
		Enabled:      true,
	}
	if err := e.Skills.WriteSkill(ctx, skill); err != nil {
		return "", fmt.Errorf("tools: write_skill: %w", err)
	}
	return jsonResult(map[string]any{"name": args.Name, "ok": true})
}

func (e *Executor) createJob(ctx context.Context, argumentsJSON string) (string, error) {
	var args struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	id, err := e.DB.CreateJob(ctx, "self", args.Title, args.Description)
	if err != nil {
		return "", fmt.Errorf("tools: create_job: %w", err)
	}
	return jsonResult(map[string]any{"id": id})
}

func (e *Executor) updateJobStatus(ctx context.Context, argumentsJSON string) (string, error) {
	var args struct {
		ID            int64  `json:"id"`
		Status        string `json:"status"`
		BlockedReason string `json:"blocked_reason"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	if err := e.DB.UpdateJobStatus(ctx, args.ID, args.Status, args.BlockedReason); err != nil {
		return "", fmt.Errorf("tools: update_job_status: %w", err)
	}
	return jsonResult(map[string]any{"ok": true})
}

func (e *Executor) recordSelfModification(ctx context.Context, argumentsJSON string) (string, error) {
	var args struct {
		FilePaths   []string `json:"file_paths"`
		ChangeType  string   `json:"change_type"`
		Description string   `json:"description"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	if err := e.DB.InsertSelfModification(ctx, args.FilePaths, args.ChangeType, args.Description, ""); err != nil {
		return "", fmt.Errorf("tools: record_self_modification: %w", err)
	}
	return jsonResult(map[string]any{"ok": true})
}
