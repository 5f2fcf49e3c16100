package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/automaton-run/automaton/internal/core"
)

func (e *Executor) spawnChild(ctx context.Context, argumentsJSON string) (string, error) {
	if e.Spawn == nil {
		return "", fmt.Errorf("tools: spawn_child not configured")
	}
	var args struct {
		Name string `json:"name"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}

	sandboxID, address, err := e.Spawn(ctx, args.Name)
	if err != nil {
		return "", fmt.Errorf("tools: spawn_child: %w", err)
	}

	child := core.ChildAutomaton{
		ID:        e.newChildID(),
		Name:      args.Name,
		SandboxID: sandboxID,
		Address:   address,
		Status:    core.ChildRunning,
		CreatedAt: time.Now(),
	}
	if err := e.DB.InsertChild(ctx, child); err != nil {
		return "", fmt.Errorf("tools: record spawned child: %w", err)
	}
	return jsonResult(map[string]any{"id": child.ID, "address": address})
}

// publishAgentCard signs the agent card as typed data with the wallet and
// returns the wallet address and the signature. It does not submit the card
// to any on-chain registry and records nothing in the store.
func (e *Executor) publishAgentCard(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireWallet(); err != nil {
		return "", err
	}
	var args struct {
		CardJSON string `json:"card_json"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}

	domain := map[string]any{"name": "automaton-agent-card", "address": e.Wallet.Address()}
	types := map[string]any{"AgentCard": []any{map[string]string{"name": "card", "type": "string"}}}
	sig, err := e.Wallet.SignTypedData(ctx, domain, types, map[string]any{"card": args.CardJSON})
	if err != nil {
		return "", fmt.Errorf("tools: publish_agent_card: sign: %w", err)
	}
	return jsonResult(map[string]any{"address": e.Wallet.Address(), "signature": sig})
}
