package llmrouter

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/automaton-run/automaton/internal/core"
)

// GenAIProvider wraps Google's Gemini API for task kinds routed to a
// gemini-* candidate. Grounded on the embedding client's genai.NewClient
// construction; generalized here from embeddings to chat generation.
type GenAIProvider struct {
	client *genai.Client
}

// NewGenAIProvider constructs a provider against the given API key.
func NewGenAIProvider(ctx context.Context, apiKey string) (*GenAIProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llmrouter: create genai client: %w", err)
	}
	return &GenAIProvider{client: client}, nil
}

// Chat implements core.Inference.
func (p *GenAIProvider) Chat(ctx context.Context, messages []core.Message, opts core.ChatOptions) (core.ChatResult, error) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, m := range messages {
		if m.Role == "system" {
			systemText += m.Content + "\n"
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genai.Ptr(float32(opts.Temperature)),
	}
	if systemText != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	result, err := p.client.Models.GenerateContent(ctx, opts.Model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return core.ChatResult{}, core.ErrTimeout
		}
		return core.ChatResult{}, newRetryableError(fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err), 0)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return core.ChatResult{}, fmt.Errorf("llmrouter: genai returned no candidates")
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		text += part.Text
	}

	usage := core.Usage{}
	if result.UsageMetadata != nil {
		usage.TokensIn = int64(result.UsageMetadata.PromptTokenCount)
		usage.TokensOut = int64(result.UsageMetadata.CandidatesTokenCount)
	}

	return core.ChatResult{Message: text, Usage: usage}, nil
}

// Close does nothing and always returns nil.
func (p *GenAIProvider) Close() error {
	return nil
}
