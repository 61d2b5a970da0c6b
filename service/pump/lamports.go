package pump

import (
	"fmt"
	"math"

	solanago "github.com/gagliardetto/solana-go"
)

// LamportsForUSD converts a USD amount to lamports at the given SOL/USD
// rate, rounding down. The payer never pays more than the configured USD
// amount at the quoted rate.
func LamportsForUSD(amountUSD, solPriceUSD float64) (uint64, error) {
	if solPriceUSD <= 0 {
		return 0, fmt.Errorf("SOL price must be positive, got %f", solPriceUSD)
	}
	if amountUSD <= 0 {
		return 0, fmt.Errorf("USD amount must be positive, got %f", amountUSD)
	}
	lamports := math.Floor(amountUSD / solPriceUSD * float64(solanago.LAMPORTS_PER_SOL))
	return uint64(lamports), nil
}

// SplitLamports divides a total payment between the recipient and the
// referrer. The referrer share is floored, the recipient receives the
// remainder, so the two always sum to the total. This is the single place
// the referral percentage is applied; the ledger credit uses the same
// referrer value, never a recomputed one.
func SplitLamports(total, percentage uint64) (recipient, referrer uint64) {
	// Split the total into hundreds and remainder so the product never
	// overflows uint64, while still flooring exactly once.
	referrer = total/100*percentage + total%100*percentage/100
	recipient = total - referrer
	return recipient, referrer
}
