// Package wallet defines the contract for the user's signing wallet.
//
// The real wallet is an external collaborator (a browser extension in the
// original product, a local keypair for CLI use here); the orchestrator only
// sees this interface plus the typed errors below, so it branches on
// structured error kinds instead of matching message substrings.
package wallet

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrNoWallet indicates no compatible wallet capability was detected.
// This is an expected outcome, recovered by showing an installation guide.
var ErrNoWallet = errors.New("no compatible wallet detected")

// ErrUserRejected indicates the user declined a connect or signing request.
// This is a cancellation, not a technical failure.
var ErrUserRejected = errors.New("user rejected the request")

// ConnectOptions controls how a connection is established.
type ConnectOptions struct {
	// Silent attempts to connect without prompting the user; it fails
	// quietly when the wallet has not previously trusted this origin.
	Silent bool
}

// Wallet is the signing capability held by the user.
type Wallet interface {
	// Connect establishes a session and returns the wallet's public key.
	// May return ErrUserRejected for interactive connects.
	Connect(ctx context.Context, opts ConnectOptions) (solana.PublicKey, error)

	// SignTransaction asks the wallet to sign the given transaction.
	// May return ErrUserRejected.
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// Probe reports whether a wallet capability is available. It is injected as
// a dependency so the orchestrator stays testable without a real wallet
// environment.
type Probe func() (Wallet, bool)

// FixedProbe returns a Probe that always yields the given wallet.
// A nil wallet means "nothing detected".
func FixedProbe(w Wallet) Probe {
	return func() (Wallet, bool) {
		if w == nil {
			return nil, false
		}
		return w, true
	}
}
