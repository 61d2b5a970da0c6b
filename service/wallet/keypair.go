package wallet

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// KeypairWallet signs with a locally held private key. It backs the CLI pump
// command and tests; connection never prompts and never fails.
type KeypairWallet struct {
	key solana.PrivateKey
}

// NewKeypairWallet wraps an in-memory private key.
func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// LoadKeypairWallet reads a Solana keygen file (the JSON byte-array format
// written by `solana-keygen new`).
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return &KeypairWallet{key: key}, nil
}

// Connect returns the keypair's public key; there is no user to prompt.
func (w *KeypairWallet) Connect(ctx context.Context, opts ConnectOptions) (solana.PublicKey, error) {
	return w.key.PublicKey(), nil
}

// SignTransaction signs the transaction in place with the held key.
func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
