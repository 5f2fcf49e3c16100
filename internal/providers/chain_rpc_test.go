package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONRPCChain_ReadContract_ReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x2a"}`))
	}))
	defer srv.Close()

	client := NewJSONRPCChain(srv.URL)
	result, err := client.ReadContract(context.Background(), "0xregistry", "[]", "balanceOf", []any{"0xabc"})
	require.NoError(t, err)
	require.Equal(t, `"0x2a"`, string(result))
}

func TestJSONRPCChain_ReadContract_PropagatesRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`))
	}))
	defer srv.Close()

	client := NewJSONRPCChain(srv.URL)
	_, err := client.ReadContract(context.Background(), "0xregistry", "[]", "balanceOf", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "execution reverted")
}
