package pump

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamportsForUSD(t *testing.T) {
	tests := []struct {
		name      string
		amountUSD float64
		priceUSD  float64
		want      uint64
		wantErr   bool
	}{
		{
			name:      "ten dollars at 150",
			amountUSD: 10,
			priceUSD:  150,
			want:      66666666, // floor(10/150 * 1e9)
		},
		{
			name:      "exact division",
			amountUSD: 10,
			priceUSD:  100,
			want:      100000000,
		},
		{
			name:      "fractional remainder floors",
			amountUSD: 10,
			priceUSD:  137.42,
			want:      72769611, // floor(10/137.42 * 1e9)
		},
		{
			name:      "zero price",
			amountUSD: 10,
			priceUSD:  0,
			wantErr:   true,
		},
		{
			name:      "negative price",
			amountUSD: 10,
			priceUSD:  -1,
			wantErr:   true,
		},
		{
			name:      "zero amount",
			amountUSD: 0,
			priceUSD:  150,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LamportsForUSD(tt.amountUSD, tt.priceUSD)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitLamports(t *testing.T) {
	tests := []struct {
		name          string
		total         uint64
		percentage    uint64
		wantRecipient uint64
		wantReferrer  uint64
	}{
		{
			name:          "even fifty-fifty",
			total:         66666666,
			percentage:    50,
			wantRecipient: 33333333,
			wantReferrer:  33333333,
		},
		{
			name:          "odd total floors the referrer",
			total:         66666667,
			percentage:    50,
			wantRecipient: 33333334,
			wantReferrer:  33333333,
		},
		{
			name:          "zero percentage",
			total:         100,
			percentage:    0,
			wantRecipient: 100,
			wantReferrer:  0,
		},
		{
			name:          "full percentage",
			total:         100,
			percentage:    100,
			wantRecipient: 0,
			wantReferrer:  100,
		},
		{
			name:          "thirty percent",
			total:         1001,
			percentage:    30,
			wantRecipient: 701,
			wantReferrer:  300,
		},
		{
			name:          "max total full percentage",
			total:         math.MaxUint64,
			percentage:    100,
			wantRecipient: 0,
			wantReferrer:  math.MaxUint64,
		},
		{
			name:          "max total fifty-fifty floors the referrer",
			total:         math.MaxUint64, // 18446744073709551615
			percentage:    50,
			wantRecipient: 9223372036854775808,
			wantReferrer:  9223372036854775807,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipient, referrer := SplitLamports(tt.total, tt.percentage)
			assert.Equal(t, tt.wantRecipient, recipient)
			assert.Equal(t, tt.wantReferrer, referrer)
			assert.Equal(t, tt.total, recipient+referrer, "split must sum to total")
		})
	}
}
