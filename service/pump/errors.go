package pump

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pump failure so callers can pick the right
// response (install guide, retry prompt, quiet dismissal) without
// inspecting error text.
type ErrorKind int

const (
	// KindInternal covers unexpected failures with no better classification.
	KindInternal ErrorKind = iota

	// KindNoWallet means no compatible wallet capability was available.
	// Expected outcome, recovered by pointing the user at an installer.
	KindNoWallet

	// KindCancelled means the user declined the connect or signing prompt.
	// This is a user choice, not a failure.
	KindCancelled

	// KindPriceUnavailable means the SOL/USD rate could not be fetched, so
	// the payment amount could not be determined.
	KindPriceUnavailable

	// KindInsufficientBalance means the payer cannot cover the transfer
	// plus the fee buffer. Detected before any transaction is constructed.
	KindInsufficientBalance

	// KindSubmission covers submission and confirmation failures: the
	// network rejected the transaction, it errored on chain, the blockhash
	// expired, or confirmation timed out.
	KindSubmission

	// KindLedgerWrite means the transfer confirmed on chain but the referral
	// ledger update failed. The payment stands; only the bookkeeping is
	// behind.
	KindLedgerWrite
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoWallet:
		return "no_wallet"
	case KindCancelled:
		return "cancelled"
	case KindPriceUnavailable:
		return "price_unavailable"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindSubmission:
		return "submission"
	case KindLedgerWrite:
		return "ledger_write"
	default:
		return "internal"
	}
}

// Error is the typed failure returned by Pump. It carries the kind
// discriminant plus the step that failed.
type Error struct {
	Kind ErrorKind
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pump %s: %s", e.Step, e.Kind)
	}
	return fmt.Sprintf("pump %s: %s: %v", e.Step, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, or KindInternal when err carries
// none.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

func failed(kind ErrorKind, step string, err error) *Error {
	return &Error{Kind: kind, Step: step, Err: err}
}
