package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/automaton-run/automaton/internal/core"
)

// SocialRelay implements core.Social over a single-request-per-call
// WebSocket connection to an external messaging relay: one dial per Poll or
// Send, a single JSON request/response frame, then close. Grounded on the
// pack's coder/websocket dependency; the exact relay wire format is a
// Non-goal of the spec, so the request/response envelope here is this
// module's own minimal shape, not a standardized protocol.
type SocialRelay struct {
	URL    string
	APIKey string
	dial   func(ctx context.Context, url string) (*websocket.Conn, error)
}

// NewSocialRelay constructs a relay client dialing url for every call.
func NewSocialRelay(url, apiKey string) *SocialRelay {
	return &SocialRelay{
		URL:    url,
		APIKey: apiKey,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.Dial(ctx, url, nil)
			return conn, err
		},
	}
}

type relayRequest struct {
	Op      string `json:"op"`
	APIKey  string `json:"api_key"`
	Cursor  string `json:"cursor,omitempty"`
	To      string `json:"to,omitempty"`
	Content string `json:"content,omitempty"`
}

type relayPollResponse struct {
	Messages   []relayMessage `json:"messages"`
	NextCursor string         `json:"next_cursor"`
}

type relayMessage struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Content  string    `json:"content"`
	SignedAt time.Time `json:"signed_at"`
}

type relaySendResponse struct {
	ID string `json:"id"`
}

// Poll implements core.Social.Poll: a "poll" op carrying the last cursor,
// returning any new messages and the cursor to resume from next time.
func (s *SocialRelay) Poll(ctx context.Context, cursor string) ([]core.InboxMessage, string, error) {
	var resp relayPollResponse
	if err := s.roundTrip(ctx, relayRequest{Op: "poll", APIKey: s.APIKey, Cursor: cursor}, &resp); err != nil {
		return nil, "", err
	}

	now := time.Now()
	messages := make([]core.InboxMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, core.InboxMessage{
			ID: m.ID, From: m.From, To: m.To, Content: m.Content,
			SignedAt: m.SignedAt, ReceivedAt: now,
		})
	}
	return messages, resp.NextCursor, nil
}

// Send implements core.Social.Send: a "send" op, returning the relay's
// assigned message id.
func (s *SocialRelay) Send(ctx context.Context, to, content string) (string, error) {
	var resp relaySendResponse
	if err := s.roundTrip(ctx, relayRequest{Op: "send", APIKey: s.APIKey, To: to, Content: content}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (s *SocialRelay) roundTrip(ctx context.Context, req relayRequest, out any) error {
	conn, err := s.dial(ctx, s.URL)
	if err != nil {
		return fmt.Errorf("providers: dial social relay: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("providers: marshal relay request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("providers: write relay request: %w", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("providers: read relay response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("providers: unmarshal relay response: %w", err)
	}
	return nil
}
