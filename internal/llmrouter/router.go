// Package llmrouter implements the Inference Router: candidate selection
// against the routing matrix, budget enforcement against the cost ledger,
// retry-with-backoff-and-fallback across candidates, and post-call ledger
// recording. Grounded on the teacher's RouterClient cache+fallback pattern
// and the openrouter.Client retry loop, generalized from a single-provider
// chat client to a tier-aware, multi-provider, budget-aware router.
package llmrouter

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

const (
	maxRetries    = 3
	backoffBase   = 1 * time.Second
	backoffCap    = 30 * time.Second
)

var taskTimeouts = map[core.TaskKind]time.Duration{
	core.TaskHeartbeatTriage: 15 * time.Second,
	core.TaskSafetyCheck:     30 * time.Second,
	core.TaskSummarization:   60 * time.Second,
	core.TaskAgentTurn:       120 * time.Second,
	core.TaskPlanning:        120 * time.Second,
}

// ProviderFactory lazily constructs a core.Inference client for a provider
// name (e.g. "openrouter", "genai"). Registered once at wiring time; the
// Router's cache means the factory typically runs once per provider.
type ProviderFactory func() (core.Inference, error)

// Request is the Router's input, mirroring §4.3's (taskKind, messages,
// sizeHint, tierOverride?) signature.
type Request struct {
	TaskKind     core.TaskKind
	Messages     []core.Message
	Tools        []core.ToolDefinition
	SizeHint     int64 // estimated input tokens, for cost estimation before the call
	Tier         core.Tier
	TierCeiling  int64 // tier-forced per-call ceiling override, -1 for none; see survival.PerCallCeilingCents
}

// Result is the Router's output, §4.3's {message, toolCalls?, usage,
// modelId, attempts, costHundredthCents}.
type Result struct {
	Message            string
	ToolCalls          []core.ToolCall
	Usage              core.Usage
	ModelID            string
	Attempts           int
	CostHundredthCents int64
}

// Router implements candidate selection, budget enforcement, retry, and
// fallback. Safe for concurrent use; all mutation happens in the state
// store, not in Router fields.
type Router struct {
	db       *store.DB
	matrix   Matrix
	cache    *providerCache
	factories map[string]ProviderFactory

	globalPerCallCeilingCents int64
	hourlyBudgetCents         int64
	enableModelFallback       bool

	now func() time.Time
}

// Config carries the operator-tunable knobs from automaton.json.
type Config struct {
	GlobalPerCallCeilingCents int64
	HourlyBudgetCents         int64
	EnableModelFallback       bool
}

// New constructs a Router. factories maps a ModelRegistryRow.Provider value
// to the core.Inference implementation that serves it.
func New(db *store.DB, matrix Matrix, factories map[string]ProviderFactory, cfg Config) (*Router, error) {
	cache, err := newProviderCache(8)
	if err != nil {
		return nil, fmt.Errorf("llmrouter: new cache: %w", err)
	}
	return &Router{
		db:                        db,
		matrix:                    matrix,
		cache:                     cache,
		factories:                 factories,
		globalPerCallCeilingCents: cfg.GlobalPerCallCeilingCents,
		hourlyBudgetCents:         cfg.HourlyBudgetCents,
		enableModelFallback:       cfg.EnableModelFallback,
		now:                       time.Now,
	}, nil
}

// Chat runs the full §4.3 selection/budget/retry/fallback/post-call
// pipeline and returns the first candidate's successful result.
func (r *Router) Chat(ctx context.Context, req Request) (Result, error) {
	entry, ok := r.matrix.Lookup(req.Tier, req.TaskKind)
	if !ok || len(entry.Candidates) == 0 {
		return Result{}, core.ErrNoEligibleModel
	}

	hourlySpend, err := r.db.HourlySpendCents(ctx, r.now())
	if err != nil {
		return Result{}, fmt.Errorf("llmrouter: load hourly spend: %w", err)
	}

	totalAttempts := 0
	var lastErr error
	budgetRejected := false

	for _, modelID := range entry.Candidates {
		row, ok, err := r.db.Model(ctx, modelID)
		if err != nil {
			return Result{}, fmt.Errorf("llmrouter: load model %s: %w", modelID, err)
		}
		if !ok || !row.Enabled {
			continue
		}
		if !core.TierAtLeast(req.Tier, row.TierMinimum) {
			continue
		}

		ceiling := minCeiling(minCeiling(entry.CeilingCents, r.globalPerCallCeilingCents), req.TierCeiling)

		maxTokens := entry.MaxTokens
		estimated := row.CostPer1kInput*req.SizeHint/1000 + row.CostPer1kOutput*maxTokens/1000
		if ceiling != -1 && estimated > ceiling {
			budgetRejected = true
			continue
		}
		if r.hourlyBudgetCents > 0 && hourlySpend+estimated > r.hourlyBudgetCents {
			budgetRejected = true
			continue
		}

		provider, err := r.providerFor(row.Provider)
		if err != nil {
			lastErr = err
			continue
		}

		attempts, result, callErr := r.invokeWithRetry(ctx, provider, req, row, maxTokens)
		totalAttempts += attempts
		if callErr == nil {
			result.ModelID = modelID
			result.Attempts = totalAttempts

			if err := r.db.AppendLedgerRow(ctx, core.CostLedgerRow{
				Timestamp:          r.now(),
				ModelID:            modelID,
				TaskKind:           req.TaskKind,
				TokensIn:           result.Usage.TokensIn,
				TokensOut:          result.Usage.TokensOut,
				CostHundredthCents: result.CostHundredthCents,
				Tier:               req.Tier,
			}); err != nil {
				return Result{}, fmt.Errorf("llmrouter: append ledger row: %w", err)
			}
			if err := r.db.TouchModelLastSeen(ctx, modelID, r.now()); err != nil {
				return Result{}, fmt.Errorf("llmrouter: touch last seen: %w", err)
			}
			return result, nil
		}

		lastErr = callErr
		if !r.enableModelFallback {
			break
		}
	}

	if lastErr == nil {
		if budgetRejected {
			return Result{}, core.ErrBudgetExhausted
		}
		return Result{}, core.ErrNoEligibleModel
	}
	if errors.Is(lastErr, core.ErrTimeout) {
		return Result{}, lastErr
	}
	return Result{}, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, lastErr)
}

// invokeWithRetry calls provider once per attempt (maxRetries attempts in
// all) with exponential backoff and full jitter between retryable failures;
// a timed-out call counts as retryable.
func (r *Router) invokeWithRetry(ctx context.Context, provider core.Inference, req Request, row core.ModelRegistryRow, maxTokens int64) (int, Result, error) {
	timeout, ok := taskTimeouts[req.TaskKind]
	if !ok {
		timeout = 120 * time.Second
	}

	attempts := 0
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		chatResult, err := provider.Chat(callCtx, req.Messages, core.ChatOptions{
			Model:     row.ModelID,
			MaxTokens: maxTokens,
			Tools:     req.Tools,
		})
		cancel()

		if err == nil {
			cost := row.CostPer1kInput*chatResult.Usage.TokensIn/1000 + row.CostPer1kOutput*chatResult.Usage.TokensOut/1000
			return attempts, Result{
				Message:            chatResult.Message,
				ToolCalls:          chatResult.ToolCalls,
				Usage:              chatResult.Usage,
				CostHundredthCents: cost,
			}, nil
		}

		lastErr = err
		retryAfter, retryable := asRetryable(err)
		if errors.Is(err, core.ErrTimeout) {
			retryable = true
		}
		if !retryable || attempt == maxRetries-1 {
			break
		}

		delay := backoffDelay(attempt, retryAfter)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return attempts, Result{}, ctx.Err()
		}
	}

	return attempts, Result{}, lastErr
}

// backoffDelay computes the retry wait: exponential with base 1s, cap 30s,
// full jitter (a uniform random draw in [0, cappedExponent]). A provider's
// Retry-After hint, if present, is honored as a floor.
func backoffDelay(attempt int, retryAfter time.Duration) time.Duration {
	exp := backoffBase << attempt
	if exp > backoffCap || exp <= 0 {
		exp = backoffCap
	}
	jittered := time.Duration(rand.Int63n(int64(exp)))
	if jittered < retryAfter {
		return retryAfter
	}
	return jittered
}

// minCeiling combines two ceilings where -1 means unbounded: the tighter
// (smaller) finite ceiling wins, and the result is unbounded only if both
// inputs are.
func minCeiling(a, b int64) int64 {
	if a == -1 {
		return b
	}
	if b == -1 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func (r *Router) providerFor(name string) (core.Inference, error) {
	if p, ok := r.cache.get(name); ok {
		return p, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("llmrouter: no provider factory registered for %q", name)
	}
	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("llmrouter: construct provider %q: %w", name, err)
	}
	r.cache.put(name, p)
	return p, nil
}
