// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrKeyDiscarded возвращается при попытке подписи ключом, который уже был уничтожен.
var ErrKeyDiscarded = errors.New("private key has been discarded")

// Wallet представляет пару ключей Solana, которой подписываются шаблоны транзакций.
type Wallet struct {
	mu         sync.RWMutex
	privateKey solana.PrivateKey
	PublicKey  solana.PublicKey
	discarded  bool
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
// Ключ должен раскладываться ровно в одну валидную пару ed25519.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	secret := strings.TrimSpace(privateKeyBase58)
	if secret == "" {
		return nil, errors.New("private key is empty")
	}

	privateKey, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected %d bytes, got %d",
			ed25519.PrivateKeySize, len(privateKey))
	}

	// Публичная половина ключа должна соответствовать seed, иначе подписи будут невалидны.
	derived := ed25519.NewKeyFromSeed(privateKey[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], privateKey[ed25519.SeedSize:]) {
		return nil, errors.New("invalid private key: public half does not match seed")
	}

	return &Wallet{
		privateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// NewTokenIdentity генерирует новую пару ключей для адреса создаваемого токена.
func NewTokenIdentity() (*Wallet, error) {
	privateKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token identity: %w", err)
	}
	return &Wallet{
		privateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// PrivateKeyFor возвращает приватный ключ, если он соответствует переданному публичному ключу.
func (w *Wallet) PrivateKeyFor(key solana.PublicKey) *solana.PrivateKey {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.discarded || !key.Equals(w.PublicKey) {
		return nil
	}
	pk := w.privateKey
	return &pk
}

// Discard затирает приватный ключ. Публичный ключ остаётся доступен.
func (w *Wallet) Discard() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.privateKey {
		w.privateKey[i] = 0
	}
	w.privateKey = nil
	w.discarded = true
}

// Discarded сообщает, был ли ключ уже уничтожен.
func (w *Wallet) Discarded() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.discarded
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// Keyring объединяет несколько кошельков в одну функцию поиска ключей для tx.Sign.
func Keyring(signers ...*Wallet) func(solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		for _, s := range signers {
			if s == nil {
				continue
			}
			if pk := s.PrivateKeyFor(key); pk != nil {
				return pk
			}
		}
		return nil
	}
}
