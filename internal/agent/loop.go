package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/llmrouter"
	"github.com/automaton-run/automaton/internal/sanitizer"
	"github.com/automaton-run/automaton/internal/store"
	"github.com/automaton-run/automaton/internal/survival"
)

// trustBoundaryTools names the tool calls that cross a trust boundary: an
// action with an irreversible external effect. Per §4.5 / CoreRules rule 2,
// an automaton may take at most one of these per turn.
var trustBoundaryTools = map[string]bool{
	"transfer_funds":      true,
	"spawn_child":         true,
	"publish_agent_card":  true,
	"sign_typed_data":     true,
}

// PromptBuilder assembles the system prompt fresh for each turn, reflecting
// the current tier, balances, skills, and lineage.
type PromptBuilder func(ctx context.Context) (string, error)

// Engine is the Turn Engine: one Think→Act→Observe cycle per RunTurn call,
// per §5.5 of SPEC_FULL.md. Grounded on the teacher's agent run-loop,
// generalized from a single inbound-message trigger to the three-way
// creator/inbox/wake input race.
type Engine struct {
	db     *store.DB
	router *llmrouter.Router
	tools  core.ToolExecutor

	buildPrompt PromptBuilder
	tierFn      func() core.Tier
	toolDefs    []core.ToolDefinition

	creatorMessagePath string

	newID func() string
	clock func() time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithCreatorMessagePath overrides the default creator-message drop file.
func WithCreatorMessagePath(path string) Option {
	return func(e *Engine) { e.creatorMessagePath = path }
}

// WithToolDefinitions sets the tool schemas advertised to the model.
func WithToolDefinitions(defs []core.ToolDefinition) Option {
	return func(e *Engine) { e.toolDefs = defs }
}

// NewEngine constructs a Turn Engine.
func NewEngine(db *store.DB, router *llmrouter.Router, tools core.ToolExecutor, buildPrompt PromptBuilder, tierFn func() core.Tier, opts ...Option) *Engine {
	e := &Engine{
		db:                 db,
		router:             router,
		tools:              tools,
		buildPrompt:        buildPrompt,
		tierFn:             tierFn,
		creatorMessagePath: "creator_message.md",
		newID:              func() string { return ulid.Make().String() },
		clock:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pendingInput is one candidate input for a turn, drawn from the creator
// message file, the inbox, or a wake signal, in that preference order.
type pendingInput struct {
	source  string // "creator", "inbox", "wake"
	raw     string
	inboxID string // non-empty only when source == "inbox"
}

// RunTurn executes at most one turn. It returns (false, nil) if there is no
// pending input to act on — callers should treat that as "nothing to do
// right now", not an error.
func (e *Engine) RunTurn(ctx context.Context, wake *core.WakeSignal) (bool, error) {
	input, ok, err := e.gatherPendingInput(wake)
	if err != nil {
		return false, fmt.Errorf("agent: gather input: %w", err)
	}
	if !ok {
		return false, nil
	}

	result := sanitizer.Sanitize(input.raw, input.source)

	turn := core.AgentTurn{
		ID:          e.newID(),
		Timestamp:   e.clock(),
		InputSource: input.source,
		Input:       result.Content,
		State:       core.TurnBuilding,
	}
	if err := e.db.CreateTurn(ctx, turn); err != nil {
		return false, fmt.Errorf("agent: create turn: %w", err)
	}

	if err := e.runInference(ctx, turn); err != nil {
		_ = e.db.UpdateTurnState(ctx, turn.ID, core.TurnAborted)
		return true, err
	}

	if input.source == "inbox" {
		if err := e.db.MarkInboxMessageProcessed(ctx, input.inboxID); err != nil {
			return true, fmt.Errorf("agent: mark inbox message processed: %w", err)
		}
	}

	return true, nil
}

// gatherPendingInput implements the creator > inbox > wake preference order.
// Only one input is consumed per call.
func (e *Engine) gatherPendingInput(wake *core.WakeSignal) (pendingInput, bool, error) {
	if raw, ok, err := e.readCreatorMessage(); err != nil {
		return pendingInput{}, false, err
	} else if ok {
		return pendingInput{source: "creator", raw: raw}, true, nil
	}

	msg, ok, err := e.db.UnprocessedInboxMessage(context.Background())
	if err != nil {
		return pendingInput{}, false, fmt.Errorf("load unprocessed inbox message: %w", err)
	}
	if ok {
		return pendingInput{source: "inbox", raw: fmt.Sprintf("from %s: %s", msg.From, msg.Content), inboxID: msg.ID}, true, nil
	}

	if wake != nil {
		return pendingInput{source: "wake", raw: "Wake signal: " + wake.Reason}, true, nil
	}

	return pendingInput{}, false, nil
}

// readCreatorMessage consumes the creator-message drop file if present,
// removing it so it is not re-read on the next turn.
func (e *Engine) readCreatorMessage() (string, bool, error) {
	b, err := os.ReadFile(e.creatorMessagePath)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read creator message: %w", err)
	}
	if err := os.Remove(e.creatorMessagePath); err != nil {
		return "", false, fmt.Errorf("remove consumed creator message: %w", err)
	}
	return string(b), true, nil
}

// runInference drives a turn from awaiting_inference through finalized:
// prompt assembly, the Router call, sequential tool dispatch with the
// one-trust-boundary-action rate limit, and persistence at each step.
func (e *Engine) runInference(ctx context.Context, turn core.AgentTurn) error {
	if err := e.db.UpdateTurnState(ctx, turn.ID, core.TurnAwaitingInference); err != nil {
		return fmt.Errorf("transition to awaiting_inference: %w", err)
	}

	systemPrompt, err := e.buildPrompt(ctx)
	if err != nil {
		return fmt.Errorf("build system prompt: %w", err)
	}

	summarizer := NewRouterSummarizer(e.router, e.tierFn())
	messages, err := AssembleMessages(ctx, e.db, summarizer, systemPrompt, turn.Input)
	if err != nil {
		return fmt.Errorf("assemble messages: %w", err)
	}

	tier := e.tierFn()
	result, err := e.router.Chat(ctx, llmrouter.Request{
		TaskKind:    core.TaskAgentTurn,
		Tier:        tier,
		Messages:    messages,
		Tools:       e.toolDefs,
		SizeHint:    estimateTokens(messages),
		TierCeiling: survival.PerCallCeilingCents(tier),
	})
	if err != nil {
		return fmt.Errorf("router chat: %w", err)
	}

	if err := e.db.UpdateTurnInference(ctx, turn.ID, result.Message, result.ModelID, result.ToolCalls, result.Usage.TokensIn, result.Usage.TokensOut, result.CostHundredthCents); err != nil {
		return fmt.Errorf("persist inference result: %w", err)
	}

	if err := e.db.UpdateTurnState(ctx, turn.ID, core.TurnDispatchingTools); err != nil {
		return fmt.Errorf("transition to dispatching_tools: %w", err)
	}

	calls, dispatchErr := e.dispatchToolCalls(ctx, turn.ID, result.ToolCalls)
	if err := e.db.UpdateTurnToolCalls(ctx, turn.ID, calls); err != nil {
		return fmt.Errorf("persist tool call results: %w", err)
	}
	if dispatchErr != nil {
		return dispatchErr
	}

	return e.db.UpdateTurnState(ctx, turn.ID, core.TurnFinalized)
}

// dispatchToolCalls executes calls sequentially, stopping on the first
// FatalToolError but recording and continuing past any other error. At most
// one trust-boundary-crossing call may succeed per turn; attempts beyond the
// first are recorded as errors without being executed.
func (e *Engine) dispatchToolCalls(ctx context.Context, turnID string, calls []core.ToolCall) ([]core.ToolCall, error) {
	crossedBoundary := false

	for i, call := range calls {
		if trustBoundaryTools[call.Name] && crossedBoundary {
			calls[i].Error = "trust-boundary action limit reached for this turn: only one permitted"
			continue
		}

		resultStr, err := e.tools.Execute(ctx, call.Name, call.Arguments)
		if err != nil {
			var fatal *FatalToolError
			if errors.As(err, &fatal) {
				calls[i].Error = fatal.Error()
				return calls, fmt.Errorf("turn %s: fatal tool error on %s: %w", turnID, call.Name, fatal)
			}
			calls[i].Error = err.Error()
			continue
		}

		calls[i].Result = resultStr
		if trustBoundaryTools[call.Name] {
			crossedBoundary = true
		}
	}

	return calls, nil
}

// estimateTokens is a cheap pre-call size estimate (chars/4), used for the
// Router's cost-ceiling check before the real usage is known.
func estimateTokens(messages []core.Message) int64 {
	var total int64
	for _, m := range messages {
		total += int64(len(m.Content))
	}
	return total / 4
}
