package agent

import (
	"context"
	"fmt"

	"github.com/automaton-run/automaton/internal/core"
	"github.com/automaton-run/automaton/internal/llmrouter"
	"github.com/automaton-run/automaton/internal/store"
)

const (
	defaultRecentTurnWindow  = 20
	summarizationThreshold   = 15
)

// Summarizer folds turns into a summary via the Router's summarization task.
type Summarizer func(ctx context.Context, turns []core.AgentTurn) (string, error)

// NewRouterSummarizer returns a Summarizer backed by the given Router,
// invoked with task kind summarization per §4.5 step 2.
func NewRouterSummarizer(router *llmrouter.Router, tier core.Tier) Summarizer {
	return func(ctx context.Context, turns []core.AgentTurn) (string, error) {
		var transcript string
		for _, t := range turns {
			transcript += fmt.Sprintf("[%s] input: %s\nthinking: %s\n\n", t.Timestamp.Format("15:04:05"), t.Input, t.Thinking)
		}

		result, err := router.Chat(ctx, llmrouter.Request{
			TaskKind: core.TaskSummarization,
			Tier:     tier,
			Messages: []core.Message{
				{Role: "system", Content: "Summarize the following turns into a few sentences of durable context."},
				{Role: "user", Content: transcript},
			},
			SizeHint:    int64(len(transcript) / 4),
			TierCeiling: -1,
		})
		if err != nil {
			return "", err
		}
		return result.Message, nil
	}
}

// AssembleMessages implements §4.5 step 3: recent turns expanded into
// user/assistant/tool roles, preceded by a fold-summary of older turns once
// the turn count exceeds summarizationThreshold, followed by the sanitized
// pending input as the final user message.
func AssembleMessages(ctx context.Context, db *store.DB, summarize Summarizer, systemPrompt, sanitizedInput string) ([]core.Message, error) {
	turns, err := db.RecentTurns(ctx, defaultRecentTurnWindow)
	if err != nil {
		return nil, fmt.Errorf("agent: load recent turns: %w", err)
	}

	messages := []core.Message{{Role: "system", Content: systemPrompt}}

	if len(turns) > summarizationThreshold {
		older := turns[:len(turns)/2]
		turns = turns[len(turns)/2:]

		summary, err := summarize(ctx, older)
		if err != nil {
			return nil, fmt.Errorf("agent: summarize older turns: %w", err)
		}
		if summary != "" {
			messages = append(messages, core.Message{Role: "system", Content: "Summary of earlier activity: " + summary})
		}
	}

	for _, t := range turns {
		messages = append(messages, turnToMessages(t)...)
	}

	messages = append(messages, core.Message{Role: "user", Content: sanitizedInput})
	return messages, nil
}

// turnToMessages expands one persisted turn into its constituent
// user/assistant/tool messages. A past assistant tool call is represented
// with its id, followed by a tool-role message bearing its result or
// "Error: <message>".
func turnToMessages(t core.AgentTurn) []core.Message {
	var out []core.Message
	if t.Input != "" {
		out = append(out, core.Message{Role: "user", Content: t.Input})
	}

	assistant := core.Message{Role: "assistant", Content: t.Thinking, ToolCalls: t.ToolCalls}
	out = append(out, assistant)

	for _, call := range t.ToolCalls {
		result := call.Result
		if call.Error != "" {
			result = "Error: " + call.Error
		}
		out = append(out, core.Message{Role: "tool", Content: result, ToolCallID: call.ID})
	}

	return out
}
