package providers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWallet_PersistsAndReloadsSameAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.key")

	w1, err := LoadOrCreateWallet(path)
	require.NoError(t, err)
	addr1 := w1.Address()
	require.NotEmpty(t, addr1)

	w2, err := LoadOrCreateWallet(path)
	require.NoError(t, err)
	require.Equal(t, addr1, w2.Address(), "reloading the persisted key must yield the same address")
}

func TestEcdsaWallet_SignTypedDataProducesNonEmptySignature(t *testing.T) {
	w, err := LoadOrCreateWallet(filepath.Join(t.TempDir(), "wallet.key"))
	require.NoError(t, err)

	sig, err := w.SignTypedData(context.Background(),
		map[string]any{"name": "automaton"},
		map[string]any{"Transfer": []any{map[string]string{"name": "to", "type": "address"}}},
		map[string]any{"to": "0xabc", "amount": "100"},
	)
	require.NoError(t, err)
	require.NotEmpty(t, sig)
	require.Equal(t, "0x", sig[:2])
}

func TestTwoWallets_HaveDifferentAddresses(t *testing.T) {
	w1, err := LoadOrCreateWallet(filepath.Join(t.TempDir(), "wallet.key"))
	require.NoError(t, err)
	w2, err := LoadOrCreateWallet(filepath.Join(t.TempDir(), "wallet.key"))
	require.NoError(t, err)
	require.NotEqual(t, w1.Address(), w2.Address())
}
