package wallet

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store keeps one in-memory credential per user. Nothing is persisted.
type Store struct {
	mu      sync.RWMutex
	wallets map[string]*Wallet
	logger  *zap.Logger
}

// NewStore creates an empty credential store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		wallets: make(map[string]*Wallet),
		logger:  logger.Named("wallet_store"),
	}
}

// Set decodes the secret and replaces any credential the user had before.
// A secret that does not decode leaves the previous credential in place.
// A replaced credential has its key wiped.
func (s *Store) Set(userID, privateKeyBase58 string) (*Wallet, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	w, err := NewWallet(privateKeyBase58)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev, replaced := s.wallets[userID]
	s.wallets[userID] = w
	s.mu.Unlock()

	if replaced {
		prev.Discard()
	}

	s.logger.Info("Credential stored",
		zap.String("user_id", userID),
		zap.String("public_key", w.PublicKey.String()),
		zap.Bool("replaced", replaced))
	return w, nil
}

// Remove drops the user's credential and wipes its key material.
func (s *Store) Remove(userID string) bool {
	s.mu.Lock()
	w, ok := s.wallets[userID]
	delete(s.wallets, userID)
	s.mu.Unlock()

	if ok {
		w.Discard()
		s.logger.Info("Credential removed", zap.String("user_id", userID))
	}
	return ok
}

// Get returns the user's credential if one is stored.
func (s *Store) Get(userID string) (*Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	return w, ok
}

// Len returns the number of stored credentials.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wallets)
}

// Close wipes every stored key. Used on process shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.wallets {
		w.Discard()
		delete(s.wallets, id)
	}
	return nil
}
