// Package session holds the connected-wallet state shared between the
// orchestrator and display surfaces.
//
// It is an explicit object handed to whoever needs it, not package-global
// state: the orchestrator is the single writer, everything else reads.
// Writes are last-write-wins.
package session

import (
	"sync"
)

// Session tracks the currently connected wallet address.
// The zero value is ready to use with no wallet connected.
type Session struct {
	mu     sync.RWMutex
	wallet string
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// SetWallet records the connected wallet address. An empty string clears the
// connection.
func (s *Session) SetWallet(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet = address
}

// Wallet returns the connected wallet address and whether one is set.
func (s *Session) Wallet() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet, s.wallet != ""
}

// Clear forgets the connected wallet.
func (s *Session) Clear() {
	s.SetWallet("")
}
