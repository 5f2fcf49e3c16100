package tools

import (
	"context"
	"fmt"
)

func (e *Executor) sendMessage(ctx context.Context, argumentsJSON string) (string, error) {
	if e.Social == nil {
		return "", fmt.Errorf("tools: social provider not configured")
	}
	var args struct {
		To      string `json:"to"`
		Content string `json:"content"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	id, err := e.Social.Send(ctx, args.To, args.Content)
	if err != nil {
		return "", fmt.Errorf("tools: send_message: %w", err)
	}
	return jsonResult(map[string]any{"id": id})
}

func (e *Executor) readContract(ctx context.Context, argumentsJSON string) (string, error) {
	if e.Chain == nil {
		return "", fmt.Errorf("tools: chain provider not configured")
	}
	var args struct {
		Address string `json:"address"`
		ABI     string `json:"abi"`
		Fn      string `json:"fn"`
		Args    []any  `json:"args"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	result, err := e.Chain.ReadContract(ctx, args.Address, args.ABI, args.Fn, args.Args)
	if err != nil {
		return "", fmt.Errorf("tools: read_contract: %w", err)
	}
	return jsonResult(map[string]any{"result": string(result)})
}
