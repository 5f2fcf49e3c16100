package llmrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/store"
)

// baselineModel describes one of DefaultMatrix's candidates well enough to
// seed a model_registry row at first boot. Costs are illustrative
// hundredth-cent-per-1k-token figures in the same ballpark as the teacher's
// OpenRouter pricing table; an operator overrides them by editing the
// model_registry table directly. Re-running SeedBaselineModels only inserts
// model IDs that are absent and never changes an existing row.
type baselineModel struct {
	id              string
	provider        string
	tierMinimum     core.Tier
	costPer1kInput  int64
	costPer1kOutput int64
	contextWindow   int64
	supportsTools   bool
}

var baselineModels = []baselineModel{
	{id: "anthropic/claude-opus", provider: "openrouter", tierMinimum: core.TierHigh, costPer1kInput: 1500, costPer1kOutput: 7500, contextWindow: 200000, supportsTools: true},
	{id: "anthropic/claude-sonnet", provider: "openrouter", tierMinimum: core.TierNormal, costPer1kInput: 300, costPer1kOutput: 1500, contextWindow: 200000, supportsTools: true},
	{id: "openai/gpt-4o", provider: "openrouter", tierMinimum: core.TierHigh, costPer1kInput: 250, costPer1kOutput: 1000, contextWindow: 128000, supportsTools: true},
	{id: "openai/gpt-4o-mini", provider: "openrouter", tierMinimum: core.TierLowCompute, costPer1kInput: 15, costPer1kOutput: 60, contextWindow: 128000, supportsTools: true},
	{id: "anthropic/claude-haiku", provider: "openrouter", tierMinimum: core.TierLowCompute, costPer1kInput: 25, costPer1kOutput: 125, contextWindow: 200000, supportsTools: true},
	{id: "gemini-2.0-flash", provider: "genai", tierMinimum: core.TierLowCompute, costPer1kInput: 10, costPer1kOutput: 40, contextWindow: 1000000, supportsTools: true},
}

// SeedBaselineModels inserts the baseline model_registry rows DefaultMatrix
// references, so a first boot has candidates to select from before an
// operator has edited anything. Safe to call on every startup: a row
// already present (including one an operator has since disabled or
// re-priced) is left untouched — seeding only ever fills gaps.
func SeedBaselineModels(ctx context.Context, db *store.DB, now time.Time) error {
	for _, m := range baselineModels {
		if _, ok, err := db.Model(ctx, m.id); err != nil {
			return fmt.Errorf("llmrouter: check existing model %s: %w", m.id, err)
		} else if ok {
			continue
		}

		row := core.ModelRegistryRow{
			ModelID:         m.id,
			Provider:        m.provider,
			TierMinimum:     m.tierMinimum,
			CostPer1kInput:  m.costPer1kInput,
			CostPer1kOutput: m.costPer1kOutput,
			MaxTokens:       4096,
			ContextWindow:   m.contextWindow,
			SupportsTools:   m.supportsTools,
			Enabled:         true,
			LastSeen:        now,
		}
		if err := db.UpsertModel(ctx, row); err != nil {
			return fmt.Errorf("llmrouter: seed model %s: %w", m.id, err)
		}
	}
	return nil
}
