package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func newTestRelayServer(t *testing.T, handle func(req relayRequest) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx := r.Context()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req relayRequest
		require.NoError(t, json.Unmarshal(data, &req))

		resp, err := json.Marshal(handle(req))
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, resp))
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestSocialRelay_Poll_ReturnsMessagesAndCursor(t *testing.T) {
	srv := newTestRelayServer(t, func(req relayRequest) any {
		require.Equal(t, "poll", req.Op)
		require.Equal(t, "cursor-1", req.Cursor)
		return relayPollResponse{
			Messages:   []relayMessage{{ID: "m1", From: "alice", To: "bot", Content: "hi"}},
			NextCursor: "cursor-2",
		}
	})
	defer srv.Close()

	relay := NewSocialRelay(wsURL(srv.URL), "key")
	messages, next, err := relay.Poll(context.Background(), "cursor-1")
	require.NoError(t, err)
	require.Equal(t, "cursor-2", next)
	require.Len(t, messages, 1)
	require.Equal(t, "m1", messages[0].ID)
	require.Equal(t, "alice", messages[0].From)
}

func TestSocialRelay_Send_ReturnsAssignedID(t *testing.T) {
	srv := newTestRelayServer(t, func(req relayRequest) any {
		require.Equal(t, "send", req.Op)
		require.Equal(t, "bob", req.To)
		require.Equal(t, "hello", req.Content)
		return relaySendResponse{ID: "sent-1"}
	})
	defer srv.Close()

	relay := NewSocialRelay(wsURL(srv.URL), "key")
	id, err := relay.Send(context.Background(), "bob", "hello")
	require.NoError(t, err)
	require.Equal(t, "sent-1", id)
}
