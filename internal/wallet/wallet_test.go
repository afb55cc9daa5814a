package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newSecret(t *testing.T) (string, solana.PublicKey) {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return pk.String(), pk.PublicKey()
}

func TestNewWallet(t *testing.T) {
	secret, pub := newSecret(t)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid key", input: secret},
		{name: "valid key with whitespace", input: "  " + secret + "\n"},
		{name: "empty", input: "", wantErr: true},
		{name: "not base58", input: "0OIl-not-a-key", wantErr: true},
		{name: "too short", input: "3yZe7d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWallet(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, w)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, pub, w.PublicKey)
			assert.Equal(t, pub.String(), w.String())
		})
	}
}

func TestWallet_DiscardWipesKey(t *testing.T) {
	identity, err := NewTokenIdentity()
	require.NoError(t, err)

	require.NotNil(t, identity.PrivateKeyFor(identity.PublicKey))

	identity.Discard()

	assert.True(t, identity.Discarded())
	assert.Nil(t, identity.PrivateKeyFor(identity.PublicKey))
	assert.False(t, identity.PublicKey.IsZero())
}

func TestKeyring(t *testing.T) {
	a, err := NewTokenIdentity()
	require.NoError(t, err)
	b, err := NewTokenIdentity()
	require.NoError(t, err)
	stranger, err := NewTokenIdentity()
	require.NoError(t, err)

	get := Keyring(a, nil, b)

	require.NotNil(t, get(a.PublicKey))
	require.NotNil(t, get(b.PublicKey))
	assert.Equal(t, b.PublicKey, get(b.PublicKey).PublicKey())
	assert.Nil(t, get(stranger.PublicKey))
}

func TestStore(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	secret, pub := newSecret(t)

	w, err := store.Set("42", secret)
	require.NoError(t, err)
	assert.Equal(t, pub, w.PublicKey)

	got, ok := store.Get("42")
	require.True(t, ok)
	assert.Same(t, w, got)

	// Невалидный ключ не затирает сохранённый.
	_, err = store.Set("42", "garbage")
	require.Error(t, err)
	got, ok = store.Get("42")
	require.True(t, ok)
	assert.Same(t, w, got)

	_, err = store.Set("", secret)
	require.Error(t, err)

	// Замена ключа затирает предыдущий.
	nextSecret, nextPub := newSecret(t)
	next, err := store.Set("42", nextSecret)
	require.NoError(t, err)
	assert.Equal(t, nextPub, next.PublicKey)
	assert.True(t, w.Discarded())
	assert.Nil(t, w.PrivateKeyFor(pub))
	assert.False(t, next.Discarded())

	assert.True(t, store.Remove("42"))
	assert.True(t, next.Discarded())
	assert.False(t, store.Remove("42"))
	_, ok = store.Get("42")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestLoadWallets(t *testing.T) {
	first, firstPub := newSecret(t)
	second, secondPub := newSecret(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "wallets.yaml")
	content := "wallets:\n" +
		"  - name: creator\n    private_key: " + first + "\n    amount: \"2.5\"\n" +
		"  - private_key: " + second + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	wallets, err := LoadWallets(path)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "creator", wallets[0].Name)
	assert.Equal(t, firstPub, wallets[0].Wallet.PublicKey)
	assert.Equal(t, "wallet_2", wallets[1].Name)
	assert.Equal(t, secondPub, wallets[1].Wallet.PublicKey)
	assert.Equal(t, "2.5", wallets[0].Amount.String())
	assert.True(t, wallets[1].Amount.IsZero())

	badAmount := filepath.Join(dir, "bad-amount.yaml")
	require.NoError(t, os.WriteFile(badAmount, []byte("wallets:\n  - private_key: "+first+"\n    amount: \"-1\"\n"), 0o600))
	_, err = LoadWallets(badAmount)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("wallets:\n  - name: x\n    private_key: nope\n"), 0o600))
	_, err = LoadWallets(bad)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("wallets: []\n"), 0o600))
	_, err = LoadWallets(empty)
	require.Error(t, err)

	_, err = LoadWallets(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
