package llmrouter

import "github.com/automaton-run/automaton/internal/core"

// MatrixEntry is what the routing matrix returns for one (tier, taskKind)
// lookup: an ordered candidate list plus the knobs that bound the call.
// A CeilingCents of -1 means unbounded, subject only to the Router's global
// perCallCeilingCents.
type MatrixEntry struct {
	Candidates   []string
	MaxTokens    int64
	CeilingCents int64
}

// Matrix is the tier × taskKind routing table. It is data, not behavior —
// DefaultMatrix below is the shipped configuration, and the Router routes
// with whatever Matrix it is constructed with.
type Matrix map[core.Tier]map[core.TaskKind]MatrixEntry

// DefaultMatrix is the out-of-the-box routing table. Richer, more expensive
// candidates lead at high/normal tiers; low_compute and critical fall back
// to cheaper models and a narrower task set (the same task kinds the
// Survival Controller's AllowedTasks lists for each tier).
func DefaultMatrix() Matrix {
	rich := []string{"anthropic/claude-opus", "anthropic/claude-sonnet", "openai/gpt-4o"}
	mid := []string{"anthropic/claude-sonnet", "openai/gpt-4o-mini"}
	cheap := []string{"openai/gpt-4o-mini", "anthropic/claude-haiku"}

	return Matrix{
		core.TierHigh: {
			core.TaskAgentTurn:       {Candidates: rich, MaxTokens: 4096, CeilingCents: -1},
			core.TaskHeartbeatTriage: {Candidates: mid, MaxTokens: 512, CeilingCents: 500},
			core.TaskSafetyCheck:     {Candidates: mid, MaxTokens: 512, CeilingCents: 500},
			core.TaskSummarization:   {Candidates: mid, MaxTokens: 2048, CeilingCents: 1000},
			core.TaskPlanning:        {Candidates: rich, MaxTokens: 4096, CeilingCents: -1},
		},
		core.TierNormal: {
			core.TaskAgentTurn:       {Candidates: mid, MaxTokens: 2048, CeilingCents: 2000},
			core.TaskHeartbeatTriage: {Candidates: cheap, MaxTokens: 512, CeilingCents: 200},
			core.TaskSafetyCheck:     {Candidates: cheap, MaxTokens: 512, CeilingCents: 200},
			core.TaskSummarization:   {Candidates: cheap, MaxTokens: 1024, CeilingCents: 500},
			core.TaskPlanning:        {Candidates: mid, MaxTokens: 2048, CeilingCents: 2000},
		},
		core.TierLowCompute: {
			core.TaskAgentTurn:       {Candidates: cheap, MaxTokens: 1024, CeilingCents: 300},
			core.TaskHeartbeatTriage: {Candidates: cheap, MaxTokens: 256, CeilingCents: 100},
			core.TaskSafetyCheck:     {Candidates: cheap, MaxTokens: 256, CeilingCents: 100},
		},
		core.TierCritical: {
			core.TaskHeartbeatTriage: {Candidates: cheap, MaxTokens: 128, CeilingCents: 300},
			core.TaskSafetyCheck:     {Candidates: cheap, MaxTokens: 128, CeilingCents: 300},
		},
	}
}

// Lookup returns the entry for (tier, kind) and whether one exists. A
// missing entry (e.g. asking for summarization at tier critical) means the
// task kind is not routed at that tier; Router.Chat reports it as
// ErrNoEligibleModel.
func (m Matrix) Lookup(tier core.Tier, kind core.TaskKind) (MatrixEntry, bool) {
	byKind, ok := m[tier]
	if !ok {
		return MatrixEntry{}, false
	}
	entry, ok := byKind[kind]
	return entry, ok
}
