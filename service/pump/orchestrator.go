// Package pump runs the end-to-end payment flow: connect a wallet, price
// the payment, check the balance, build and sign the transfer, submit it,
// wait for confirmation, then settle the referral ledger.
//
// Every step is strictly user-initiated. There are no automatic retries at
// any stage; a failed pump surfaces a typed Error and waits for the user to
// try again.
package pump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/pumpcam/pumpcam/service/config"
	"github.com/pumpcam/pumpcam/service/events"
	"github.com/pumpcam/pumpcam/service/metrics"
	"github.com/pumpcam/pumpcam/service/price"
	"github.com/pumpcam/pumpcam/service/session"
	"github.com/pumpcam/pumpcam/service/solana"
	"github.com/pumpcam/pumpcam/service/wallet"
)

// Ledger is the referral bookkeeping needed during a pump.
type Ledger interface {
	CreateOrUpdateUser(ctx context.Context, walletAddr string, referrer *string) error
	ReferrerAddress(ctx context.Context, walletAddr string) (*string, error)
	RecordPump(ctx context.Context, payer string, referrerShare int64) (*string, error)
}

// Chain is the ledger-endpoint surface the orchestrator drives.
type Chain interface {
	Balance(ctx context.Context, account solanago.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (solana.Blockhash, error)
	Submit(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error)
	AwaitConfirmation(ctx context.Context, sig solanago.Signature, lastValidBlockHeight uint64) error
}

// Request carries the per-pump inputs.
type Request struct {
	// ReferralCode is the referrer wallet address from the sharing link,
	// nil when the user arrived without one. It only takes effect the
	// first time this payer is seen.
	ReferralCode *string

	// SilentConnect reuses a previously trusted wallet session without
	// prompting. When the silent attempt fails the connect falls back to
	// an interactive prompt.
	SilentConnect bool
}

// TxSummary describes a completed pump.
type TxSummary struct {
	Payer     string  `json:"payer"`
	Recipient string  `json:"recipient"`
	Referrer  *string `json:"referrer,omitempty"`

	AmountUSD   float64 `json:"amount_usd"`
	SOLPriceUSD float64 `json:"sol_price_usd"`

	GrossLamports     uint64 `json:"gross_lamports"`
	RecipientLamports uint64 `json:"recipient_lamports"`
	ReferrerLamports  uint64 `json:"referrer_lamports"`

	Signature string `json:"signature"`
}

// Orchestrator wires the pump flow together. All collaborators are injected
// so the flow is testable without a wallet, a network, or a database.
type Orchestrator struct {
	cfg       *config.Config
	recipient solanago.PublicKey

	oracle    price.Oracle
	chain     Chain
	probe     wallet.Probe
	ledger    Ledger
	publisher events.Publisher
	session   *session.Session

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewOrchestrator builds an Orchestrator. The publisher may be nil when no
// event stream is configured.
func NewOrchestrator(
	cfg *config.Config,
	oracle price.Oracle,
	chain Chain,
	probe wallet.Probe,
	ledger Ledger,
	publisher events.Publisher,
	sess *session.Session,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Orchestrator, error) {
	recipient, err := solanago.PublicKeyFromBase58(cfg.RecipientWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient wallet %q: %w", cfg.RecipientWallet, err)
	}
	if sess == nil {
		sess = session.New()
	}
	return &Orchestrator{
		cfg:       cfg,
		recipient: recipient,
		oracle:    oracle,
		chain:     chain,
		probe:     probe,
		ledger:    ledger,
		publisher: publisher,
		session:   sess,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Pump executes one complete payment. On success it returns the summary and
// a nil error. When the transfer confirmed but the ledger write failed, it
// returns BOTH the summary and a KindLedgerWrite error: the payment stands.
func (o *Orchestrator) Pump(ctx context.Context, req Request) (*TxSummary, error) {
	start := time.Now()
	summary, err := o.pump(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	if o.metrics != nil {
		o.metrics.RecordPump(outcome, time.Since(start).Seconds())
	}
	return summary, err
}

func (o *Orchestrator) pump(ctx context.Context, req Request) (*TxSummary, error) {
	w, payer, err := o.connect(ctx, req)
	if err != nil {
		return nil, err
	}
	payerAddr := payer.String()
	o.session.SetWallet(payerAddr)
	o.logger.Info("wallet connected", "payer", payerAddr)

	if err := o.ledger.CreateOrUpdateUser(ctx, payerAddr, req.ReferralCode); err != nil {
		return nil, failed(KindLedgerWrite, "register user", err)
	}

	rate, err := o.oracle.AssetPriceUSD(ctx)
	if err != nil {
		return nil, failed(KindPriceUnavailable, "fetch price", err)
	}

	gross, err := LamportsForUSD(o.cfg.PumpAmountUSD, rate)
	if err != nil {
		return nil, failed(KindInternal, "convert amount", err)
	}

	balance, err := o.chain.Balance(ctx, payer)
	if err != nil {
		return nil, failed(KindInternal, "check balance", err)
	}
	required := gross + o.cfg.FeeBufferLamports
	if balance < required {
		return nil, failed(KindInsufficientBalance, "check balance",
			fmt.Errorf("balance %d lamports, need %d", balance, required))
	}

	referrer, err := o.ledger.ReferrerAddress(ctx, payerAddr)
	if err != nil {
		return nil, failed(KindLedgerWrite, "lookup referrer", err)
	}

	summary := &TxSummary{
		Payer:             payerAddr,
		Recipient:         o.recipient.String(),
		Referrer:          referrer,
		AmountUSD:         o.cfg.PumpAmountUSD,
		SOLPriceUSD:       rate,
		GrossLamports:     gross,
		RecipientLamports: gross,
	}

	params := solana.TransferParams{
		Payer:             payer,
		Recipient:         o.recipient,
		RecipientLamports: gross,
	}
	if referrer != nil {
		referrerKey, err := solanago.PublicKeyFromBase58(*referrer)
		if err != nil {
			return nil, failed(KindInternal, "parse referrer", err)
		}
		recipientShare, referrerShare := SplitLamports(gross, o.cfg.ReferralPercentage)
		params.RecipientLamports = recipientShare
		params.Referrer = &referrerKey
		params.ReferrerLamports = referrerShare
		summary.RecipientLamports = recipientShare
		summary.ReferrerLamports = referrerShare
	}

	blockhash, err := o.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, failed(KindSubmission, "fetch blockhash", err)
	}
	params.Blockhash = blockhash

	tx, err := solana.BuildTransfer(params)
	if err != nil {
		return nil, failed(KindInternal, "build transaction", err)
	}

	signed, err := w.SignTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return nil, failed(KindCancelled, "sign transaction", err)
		}
		return nil, failed(KindInternal, "sign transaction", err)
	}

	sig, err := o.chain.Submit(ctx, signed)
	if err != nil {
		return nil, failed(KindSubmission, "submit transaction", err)
	}
	summary.Signature = sig.String()
	o.logger.Info("transaction submitted",
		"signature", summary.Signature,
		"payer", payerAddr,
		"gross_lamports", gross)

	confirmCtx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
	defer cancel()
	if err := o.chain.AwaitConfirmation(confirmCtx, sig, blockhash.LastValidBlockHeight); err != nil {
		return nil, failed(KindSubmission, "await confirmation", err)
	}
	if o.metrics != nil {
		o.metrics.RecordPumpLamports(summary.RecipientLamports, summary.ReferrerLamports)
	}
	o.logger.Info("transaction confirmed", "signature", summary.Signature)

	// The transfer is final from here on. A ledger failure does not undo
	// it; the caller gets the summary alongside the error.
	credited, err := o.ledger.RecordPump(ctx, payerAddr, int64(summary.ReferrerLamports))
	if err != nil {
		return summary, failed(KindLedgerWrite, "record pump", err)
	}

	if credited != nil && summary.ReferrerLamports > 0 {
		o.publish(ctx, summary, *credited)
	}
	return summary, nil
}

// connect probes for a wallet capability and establishes a session. A
// failed silent attempt falls back to an interactive prompt.
func (o *Orchestrator) connect(ctx context.Context, req Request) (wallet.Wallet, solanago.PublicKey, error) {
	w, ok := o.probe()
	if !ok {
		return nil, solanago.PublicKey{}, failed(KindNoWallet, "connect", wallet.ErrNoWallet)
	}

	if req.SilentConnect {
		if payer, err := w.Connect(ctx, wallet.ConnectOptions{Silent: true}); err == nil {
			return w, payer, nil
		}
	}
	payer, err := w.Connect(ctx, wallet.ConnectOptions{})
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return nil, solanago.PublicKey{}, failed(KindCancelled, "connect", err)
		}
		return nil, solanago.PublicKey{}, failed(KindInternal, "connect", err)
	}
	return w, payer, nil
}

// publish emits the referral event. Delivery is best effort: the credit is
// already durable in the ledger, so a publish failure only costs the live
// update.
func (o *Orchestrator) publish(ctx context.Context, summary *TxSummary, referrer string) {
	if o.publisher == nil {
		return
	}
	event := &events.ReferralEvent{
		ReferrerAddress:  referrer,
		PayerAddress:     summary.Payer,
		GrossLamports:    int64(summary.GrossLamports),
		ReferrerLamports: int64(summary.ReferrerLamports),
		Signature:        summary.Signature,
		PublishedAt:      time.Now().UTC(),
	}
	if err := o.publisher.PublishReferralEvent(ctx, event); err != nil {
		o.logger.Warn("failed to publish referral event",
			"referrer", referrer,
			"signature", summary.Signature,
			"error", err)
	}
}
