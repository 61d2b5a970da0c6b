// Package solana wraps the remote ledger endpoint: balance queries,
// recent-blockhash queries, raw transaction submission, and confirmation
// polling. Transaction construction for pump transfers also lives here.
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pumpcam/pumpcam/service/metrics"
)

// ErrBlockhashExpired is returned when a submitted transaction's blockhash
// passed its last valid block height before the network confirmed it.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

// OnChainError reports that a transaction was included in a block but failed
// during on-chain execution. Funds may still have moved in part; callers
// should tell the user to verify rather than assume safety.
type OnChainError struct {
	Signature solana.Signature
	Detail    string
}

func (e *OnChainError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %s", e.Signature, e.Detail)
}

// Blockhash is a recent block reference plus the height after which it expires.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// Gateway provides the ledger-network operations the orchestrator needs.
type Gateway struct {
	rpc       RPCClient
	logger    *slog.Logger
	metrics   *metrics.Metrics
	pollEvery time.Duration
}

// NewGateway creates a gateway over the given RPC client.
// pollEvery controls the confirmation polling cadence.
// If metrics is nil, no metrics are recorded.
func NewGateway(rpcClient RPCClient, pollEvery time.Duration, m *metrics.Metrics, logger *slog.Logger) *Gateway {
	if pollEvery <= 0 {
		pollEvery = 2 * time.Second
	}
	return &Gateway{
		rpc:       rpcClient,
		logger:    logger,
		metrics:   m,
		pollEvery: pollEvery,
	}
}

// Balance returns the lamport balance of the given account.
func (g *Gateway) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	start := time.Now()
	out, err := g.rpc.GetBalance(ctx, account, rpc.CommitmentProcessed)
	g.record("GetBalance", err, time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", account, err)
	}
	return out.Value, nil
}

// LatestBlockhash fetches a fresh block reference at processed commitment.
func (g *Gateway) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	start := time.Now()
	out, err := g.rpc.GetLatestBlockhash(ctx, rpc.CommitmentProcessed)
	g.record("GetLatestBlockhash", err, time.Since(start))
	if err != nil {
		return Blockhash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return Blockhash{
		Hash:                 out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}

// Submit serializes and submits a signed transaction, returning its signature.
func (g *Gateway) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	serialized, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to serialize transaction: %w", err)
	}

	start := time.Now()
	sig, err := g.rpc.SendRawTransactionWithOpts(ctx, serialized, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	g.record("SendRawTransaction", err, time.Since(start))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to submit transaction: %w", err)
	}

	g.logger.InfoContext(ctx, "transaction submitted", "signature", sig.String())
	return sig, nil
}

// AwaitConfirmation polls signature status until the transaction is confirmed,
// fails on-chain, the blockhash expires, or ctx is done. Callers bound the
// wait with a context deadline.
func (g *Gateway) AwaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	ticker := time.NewTicker(g.pollEvery)
	defer ticker.Stop()

	for {
		start := time.Now()
		statuses, err := g.rpc.GetSignatureStatuses(ctx, false, sig)
		g.record("GetSignatureStatuses", err, time.Since(start))
		if err != nil {
			return fmt.Errorf("failed to get signature status: %w", err)
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]

			if status.Err != nil {
				return &OnChainError{
					Signature: sig,
					Detail:    fmt.Sprintf("%v", status.Err),
				}
			}

			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				g.logger.InfoContext(ctx, "transaction confirmed",
					"signature", sig.String(),
					"status", string(status.ConfirmationStatus),
					"slot", status.Slot,
				)
				return nil
			}
		}

		// Not confirmed yet; give up once the blockhash can no longer land.
		height, err := g.rpc.GetBlockHeight(ctx, rpc.CommitmentProcessed)
		if err == nil && height > lastValidBlockHeight {
			g.logger.WarnContext(ctx, "blockhash expired while awaiting confirmation",
				"signature", sig.String(),
				"block_height", height,
				"last_valid", lastValidBlockHeight,
			)
			return ErrBlockhashExpired
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation wait aborted: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (g *Gateway) record(method string, err error, duration time.Duration) {
	if g.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	g.metrics.RecordRPCCall(method, status, duration.Seconds())
}
