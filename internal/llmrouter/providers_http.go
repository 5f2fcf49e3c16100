package llmrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/automaton-run/automaton/internal/core"
)

// HTTPProvider talks to an OpenRouter-shaped chat-completions HTTP API.
// Adapted from the teacher's openrouter.Client: same request/response shape,
// generalized so the model id is supplied per call by opts.Model instead of
// being fixed at construction time, since the Router now picks the model.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewHTTPProvider constructs a provider with sane client timeouts; the
// per-call context deadline set by the Router is what actually bounds a
// request, this is just a backstop.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 150 * time.Second},
	}
}

type httpChatRequest struct {
	Model       string              `json:"model"`
	Messages    []core.Message      `json:"messages"`
	MaxTokens   int64               `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	Tools       []httpToolParam     `json:"tools,omitempty"`
}

type httpToolParam struct {
	Type     string              `json:"type"`
	Function core.ToolDefinition `json:"function"`
}

type httpChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat implements core.Inference.
func (p *HTTPProvider) Chat(ctx context.Context, messages []core.Message, opts core.ChatOptions) (core.ChatResult, error) {
	reqBody := httpChatRequest{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, td := range opts.Tools {
		reqBody.Tools = append(reqBody.Tools, httpToolParam{Type: "function", Function: td})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return core.ChatResult{}, fmt.Errorf("llmrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return core.ChatResult{}, fmt.Errorf("llmrouter: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.ChatResult{}, core.ErrTimeout
		}
		return core.ChatResult{}, newRetryableError(fmt.Errorf("%w: %v", core.ErrProviderUnavailable, err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.ChatResult{}, newRetryableError(fmt.Errorf("%w: read body: %v", core.ErrProviderUnavailable, err), 0)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return core.ChatResult{}, newRetryableError(fmt.Errorf("%w: rate limited", core.ErrProviderUnavailable), retryAfterFromHeader(resp.Header))
	}
	if resp.StatusCode >= 500 {
		return core.ChatResult{}, newRetryableError(fmt.Errorf("%w: status %d", core.ErrProviderUnavailable, resp.StatusCode), 0)
	}
	if resp.StatusCode >= 400 {
		return core.ChatResult{}, fmt.Errorf("llmrouter: provider rejected request (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed httpChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return core.ChatResult{}, fmt.Errorf("llmrouter: decode response: %w", err)
	}
	if parsed.Error != nil {
		return core.ChatResult{}, fmt.Errorf("llmrouter: provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return core.ChatResult{}, fmt.Errorf("llmrouter: empty choices in response")
	}

	choice := parsed.Choices[0].Message
	result := core.ChatResult{
		Message: choice.Content,
		Usage:   core.Usage{TokensIn: parsed.Usage.PromptTokens, TokensOut: parsed.Usage.CompletionTokens},
	}
	for _, tc := range choice.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

func retryAfterFromHeader(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
