package tools

import (
	"context"
	"fmt"

	"github.com/automaton-run/automaton/internal/agent"
)

func (e *Executor) requireWallet() error {
	if e.Wallet == nil {
		return fmt.Errorf("tools: wallet provider not configured")
	}
	return nil
}

// transferFunds signs a transfer as typed data and returns the signature;
// broadcasting it is the chain relay's concern, out of scope per the spec's
// Non-goal on the payment protocol's wire format. A signer refusal (e.g. a
// hardware-backed key rejecting the request) is fatal per spec.md §7's
// "wallet-signer refusal" example.
func (e *Executor) transferFunds(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireWallet(); err != nil {
		return "", err
	}
	var args struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}

	domain := map[string]any{"name": "automaton-transfer", "from": e.Wallet.Address()}
	types := map[string]any{"Transfer": []any{
		map[string]string{"name": "to", "type": "address"},
		map[string]string{"name": "amount", "type": "string"},
	}}
	message := map[string]any{"to": args.To, "amount": args.Amount}

	sig, err := e.Wallet.SignTypedData(ctx, domain, types, message)
	if err != nil {
		return "", &agent.FatalToolError{Err: fmt.Errorf("transfer_funds: wallet signer refused: %w", err)}
	}
	return jsonResult(map[string]any{"signature": sig, "from": e.Wallet.Address(), "to": args.To, "amount": args.Amount})
}

func (e *Executor) signTypedData(ctx context.Context, argumentsJSON string) (string, error) {
	if err := e.requireWallet(); err != nil {
		return "", err
	}
	var args struct {
		Domain  map[string]any `json:"domain"`
		Types   map[string]any `json:"types"`
		Message map[string]any `json:"message"`
	}
	if err := unmarshalArgs(argumentsJSON, &args); err != nil {
		return "", err
	}
	sig, err := e.Wallet.SignTypedData(ctx, args.Domain, args.Types, args.Message)
	if err != nil {
		return "", &agent.FatalToolError{Err: fmt.Errorf("sign_typed_data: wallet signer refused: %w", err)}
	}
	return jsonResult(map[string]any{"signature": sig})
}
