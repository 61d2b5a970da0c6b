package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// TransferParams describes one pump transfer: a payment to the fixed
// recipient plus an optional referrer cut, executed as a single atomic
// transaction with the payer as fee payer.
type TransferParams struct {
	Payer             solana.PublicKey
	Recipient         solana.PublicKey
	RecipientLamports uint64

	// Referrer is nil when the payer has no referrer on record.
	Referrer         *solana.PublicKey
	ReferrerLamports uint64

	Blockhash Blockhash
}

// BuildTransfer constructs the unsigned pump transaction: a SystemProgram
// transfer per positive leg, recipient first. Either leg may be zero when the
// split sends everything the other way, but the transaction as a whole must
// move lamports.
func BuildTransfer(params TransferParams) (*solana.Transaction, error) {
	if params.ReferrerLamports > 0 && params.Referrer == nil {
		return nil, fmt.Errorf("referrer share %d lamports without a referrer address", params.ReferrerLamports)
	}
	if params.RecipientLamports == 0 && params.ReferrerLamports == 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}

	var instructions []solana.Instruction
	if params.RecipientLamports > 0 {
		instructions = append(instructions, system.NewTransferInstruction(
			params.RecipientLamports,
			params.Payer,
			params.Recipient,
		).Build())
	}

	if params.Referrer != nil && params.ReferrerLamports > 0 {
		instructions = append(instructions, system.NewTransferInstruction(
			params.ReferrerLamports,
			params.Payer,
			*params.Referrer,
		).Build())
	}

	tx, err := solana.NewTransaction(
		instructions,
		params.Blockhash.Hash,
		solana.TransactionPayer(params.Payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer transaction: %w", err)
	}

	return tx, nil
}
