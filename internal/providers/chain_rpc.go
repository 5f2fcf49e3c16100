package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/automaton-run/automaton/internal/core"
)

// JSONRPCChain implements core.ChainRPC as a thin JSON-RPC 2.0 client
// (net/http only — no chain SDK appears anywhere in the retrieved pack, and
// ABI encoding / on-chain registry schemas are an explicit spec Non-goal).
// address, abi, and fn are passed through as opaque strings in the call
// params rather than ABI-encoded, since that encoding's wire format is out
// of scope here; a real deployment's ChainRPC implementation would do real
// ABI encoding behind this same interface.
type JSONRPCChain struct {
	Endpoint string
	Client   *http.Client
}

// NewJSONRPCChain constructs a client against endpoint.
func NewJSONRPCChain(endpoint string) *JSONRPCChain {
	return &JSONRPCChain{Endpoint: endpoint, Client: &http.Client{}}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ReadContract issues an eth_call-shaped JSON-RPC request: params are
// [{address, abi, fn, args}, "latest"], left for the relay endpoint to
// interpret since real ABI encoding is out of scope.
func (c *JSONRPCChain) ReadContract(ctx context.Context, address, abi, fn string, args []any) ([]byte, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []any{
			map[string]any{"address": address, "abi": abi, "fn": fn, "args": args},
			"latest",
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("providers: marshal rpc request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("providers: build rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("providers: rpc call: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("providers: decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("providers: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// USDCBalanceHundredthCents reads an ERC-20 balanceOf(ownerAddress) through
// chain and converts the result to hundredth-cents, assuming USDC's 6
// decimals (1 USDC = 10000 hundredth-cents). Suitable for partial
// application into a scheduler.BalanceFetcher.
func USDCBalanceHundredthCents(ctx context.Context, chain core.ChainRPC, contractAddress, ownerAddress string) (int64, error) {
	raw, err := chain.ReadContract(ctx, contractAddress, "erc20", "balanceOf", []any{ownerAddress})
	if err != nil {
		return 0, fmt.Errorf("providers: read usdc balance: %w", err)
	}

	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return 0, fmt.Errorf("providers: decode balance result %q: %w", string(raw), err)
	}

	units, ok := new(big.Int).SetString(strings.TrimPrefix(hexResult, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("providers: parse balance %q", hexResult)
	}

	hundredthCents := new(big.Int).Div(units, big.NewInt(100))
	return hundredthCents.Int64(), nil
}
