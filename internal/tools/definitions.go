// Package tools implements core.ToolExecutor: the dispatch table that maps
// a tool call name to one of the automaton's Providers (Sandbox, Social,
// Wallet, Chain) or state-store operations. Adapted from the teacher's
// tools.Executor/definitions.go (a name-keyed dispatch over a fixed set of
// built-in tools, each returning a JSON-string result), generalized from a
// chat-bot's workspace/file/job tools to the automaton's sandbox/social/
// wallet/chain provider surface.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/skills"
	"github.com/automaton-run/automaton/internal/store"
)

// Names of the tools this package dispatches. Kept as constants so
// the Definitions list and the Executor's switch cannot drift apart.
const (
	ToolExecCommand       = "exec_command"
	ToolWriteFile         = "write_file"
	ToolReadFile          = "read_file"
	ToolExposePort        = "expose_port"
	ToolSendMessage       = "send_message"
	ToolReadContract      = "read_contract"
	ToolTransferFunds     = "transfer_funds"
	ToolSignTypedData     = "sign_typed_data"
	ToolSpawnChild        = "spawn_child"
	ToolPublishAgentCard  = "publish_agent_card"
	ToolWriteSkill        = "write_skill"
	ToolCreateJob         = "create_job"
	ToolUpdateJobStatus   = "update_job_status"
	ToolRecordSelfModification = "record_self_modification"
)

// Definitions returns the JSON-Schema tool definitions for every tool this
// Executor serves, in the shape the Router passes through to the Inference
// provider. Descriptions are deliberately terse — the model's own
// exploration plus the system prompt's skill instructions carry the rest.
func Definitions() []core.ToolDefinition {
	obj := func(props map[string]any, required ...string) map[string]any {
		return map[string]any{"type": "object", "properties": props, "required": required}
	}
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	num := func(desc string) map[string]any { return map[string]any{"type": "integer", "description": desc} }

	return []core.ToolDefinition{
		{Name: ToolExecCommand, Description: "Run a shell command in the sandbox.", Parameters: obj(map[string]any{
			"command":    str("shell command to run"),
			"timeout_ms": num("timeout in milliseconds, default 30000"),
		}, "command")},
		{Name: ToolWriteFile, Description: "Write a file in the sandbox workspace.", Parameters: obj(map[string]any{
			"path":    str("path relative to the sandbox base directory"),
			"content": str("file content"),
		}, "path", "content")},
		{Name: ToolReadFile, Description: "Read a file from the sandbox workspace.", Parameters: obj(map[string]any{
			"path": str("path relative to the sandbox base directory"),
		}, "path")},
		{Name: ToolExposePort, Description: "Expose a sandbox port publicly, returning its URL.", Parameters: obj(map[string]any{
			"port": num("port number to expose"),
		}, "port")},
		{Name: ToolSendMessage, Description: "Send a message to another address over the social relay.", Parameters: obj(map[string]any{
			"to":      str("destination address"),
			"content": str("message body"),
		}, "to", "content")},
		{Name: ToolReadContract, Description: "Read-only call against an on-chain contract.", Parameters: obj(map[string]any{
			"address": str("contract address"),
			"abi":     str("ABI fragment"),
			"fn":      str("function name"),
		}, "address", "abi", "fn")},
		{Name: ToolTransferFunds, Description: "Sign a funds transfer with the wallet and return the signature; the transfer is not broadcast. Trust-boundary: at most one per turn.", Parameters: obj(map[string]any{
			"to":     str("recipient address"),
			"amount": str("amount, as a decimal string in the wallet's native unit"),
		}, "to", "amount")},
		{Name: ToolSignTypedData, Description: "Sign arbitrary typed data with the automaton's wallet. Trust-boundary: at most one per turn.", Parameters: obj(map[string]any{
			"domain":  map[string]any{"type": "object", "description": "EIP-712-shaped domain separator"},
			"types":   map[string]any{"type": "object", "description": "type definitions"},
			"message": map[string]any{"type": "object", "description": "message to sign"},
		}, "domain", "types", "message")},
		{Name: ToolSpawnChild, Description: "Spawn a child automaton in a fresh sandbox. Trust-boundary: at most one per turn.", Parameters: obj(map[string]any{
			"name": str("human-readable name for the child"),
		}, "name")},
		{Name: ToolPublishAgentCard, Description: "Sign this automaton's agent card (address + capabilities) with its wallet and return the signature; nothing is written to a chain registry. Trust-boundary: at most one per turn.", Parameters: obj(map[string]any{
			"card_json": str("the agent card, as a JSON string"),
		}, "card_json")},
		{Name: ToolWriteSkill, Description: "Author or update a skill file.", Parameters: obj(map[string]any{
			"name":         str("skill name, lowercase with dashes/underscores"),
			"description":  str("one-line skill description"),
			"instructions": str("the skill's instruction body"),
			"auto_activate": map[string]any{"type": "boolean", "description": "whether this skill is always injected into the system prompt"},
		}, "name", "instructions")},
		{Name: ToolCreateJob, Description: "Open a new tracked job.", Parameters: obj(map[string]any{
			"title":       str("short job title"),
			"description": str("job description"),
		}, "title")},
		{Name: ToolUpdateJobStatus, Description: "Update a tracked job's status.", Parameters: obj(map[string]any{
			"id":             num("job id"),
			"status":         str("one of open, blocked, closed"),
			"blocked_reason": str("reason, if status is blocked"),
		}, "id", "status")},
		{Name: ToolRecordSelfModification, Description: "Record an entry in the self-modification log.", Parameters: obj(map[string]any{
			"file_paths":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "files touched"},
			"change_type": str("kind of change, e.g. skill, config, core"),
			"description": str("what changed and why"),
		}, "file_paths", "change_type", "description")},
	}
}

// Executor dispatches tool calls by name to the automaton's Providers and
// state store. A nil provider field means that provider is not configured;
// calling a tool backed by it returns an error recorded on the call, not a
// panic.
type Executor struct {
	DB      *store.DB
	Sandbox core.SandboxExec
	Social  core.Social
	Wallet  core.WalletSigner
	Chain   core.ChainRPC
	Skills  *skills.Manager

	// Spawn constructs a new child automaton's sandbox and returns its
	// address; nil disables spawn_child. Kept as a function field rather
	// than a concrete type since sandbox provisioning is infrastructure the
	// spec leaves to the operator's deployment (Non-goal: installer UX).
	Spawn func(ctx context.Context, name string) (sandboxID, address string, err error)

	newChildID func() string
}

// NewExecutor constructs an Executor. Any provider field may be left zero
// and wired in afterward.
func NewExecutor(db *store.DB, newChildID func() string) *Executor {
	return &Executor{DB: db, newChildID: newChildID}
}

// Execute implements core.ToolExecutor.
func (e *Executor) Execute(ctx context.Context, name string, argumentsJSON string) (string, error) {
	switch name {
	case ToolExecCommand:
		return e.execCommand(ctx, argumentsJSON)
	case ToolWriteFile:
		return e.writeFile(ctx, argumentsJSON)
	case ToolReadFile:
		return e.readFile(ctx, argumentsJSON)
	case ToolExposePort:
		return e.exposePort(ctx, argumentsJSON)
	case ToolSendMessage:
		return e.sendMessage(ctx, argumentsJSON)
	case ToolReadContract:
		return e.readContract(ctx, argumentsJSON)
	case ToolTransferFunds:
		return e.transferFunds(ctx, argumentsJSON)
	case ToolSignTypedData:
		return e.signTypedData(ctx, argumentsJSON)
	case ToolSpawnChild:
		return e.spawnChild(ctx, argumentsJSON)
	case ToolPublishAgentCard:
		return e.publishAgentCard(ctx, argumentsJSON)
	case ToolWriteSkill:
		return e.writeSkill(ctx, argumentsJSON)
	case ToolCreateJob:
		return e.createJob(ctx, argumentsJSON)
	case ToolUpdateJobStatus:
		return e.updateJobStatus(ctx, argumentsJSON)
	case ToolRecordSelfModification:
		return e.recordSelfModification(ctx, argumentsJSON)
	default:
		return "", fmt.Errorf("%w: %s", core.ErrToolUnknown, name)
	}
}

func unmarshalArgs(argumentsJSON string, dest any) error {
	if argumentsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(argumentsJSON), dest); err != nil {
		return fmt.Errorf("tools: parse arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tools: marshal result: %w", err)
	}
	return string(out), nil
}
