package events

import (
	"time"
)

// ReferralEvent is published after a confirmed pump updates the ledger.
// It is published to the subject "referrals.{referrer_address}" in JetStream
// so dashboards watching a referrer see credits as they land.
type ReferralEvent struct {
	// Parties
	ReferrerAddress string `json:"referrer_address"`
	PayerAddress    string `json:"payer_address"`

	// Amounts in lamports
	GrossLamports    int64 `json:"gross_lamports"`
	ReferrerLamports int64 `json:"referrer_lamports"`

	// On-chain reference
	Signature string `json:"signature"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}
