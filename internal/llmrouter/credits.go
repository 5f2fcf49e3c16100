package llmrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// creditsResponse mirrors OpenRouter's GET /credits shape: a running total
// of purchased credits and total usage, both in dollars.
type creditsResponse struct {
	Data struct {
		TotalCredits float64 `json:"total_credits"`
		TotalUsage   float64 `json:"total_usage"`
	} `json:"data"`
}

// FetchOpenRouterCredits reads the remaining OpenRouter credit balance and
// converts it to hundredth-cents, in the same request/auth shape as
// HTTPProvider.Chat (Bearer auth, BaseURL-relative path, json decode).
// Suitable for partial application into a scheduler.CreditsFetcher.
func FetchOpenRouterCredits(ctx context.Context, baseURL, apiKey string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/credits", nil)
	if err != nil {
		return 0, fmt.Errorf("llmrouter: build credits request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("llmrouter: fetch credits: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("llmrouter: fetch credits: unexpected status %d", resp.StatusCode)
	}

	var parsed creditsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("llmrouter: decode credits response: %w", err)
	}

	remaining := parsed.Data.TotalCredits - parsed.Data.TotalUsage
	return int64(remaining * 10000), nil
}
