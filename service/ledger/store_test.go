package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	walletB = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	walletR = "7S3P4HxJpyyigGzodYwHtCxZyUQe9JiBMHyRWXArAaKv"
)

func strPtr(s string) *string { return &s }

func TestCreateOrUpdateUser_Idempotent(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()

	// First creation sets referred_by.
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletR)))

	// A second call with a different referrer must not overwrite it.
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletB)))

	rec, err := ts.GetUser(ctx, walletA)
	require.NoError(t, err)
	require.NotNil(t, rec.ReferredBy)
	assert.Equal(t, walletR, *rec.ReferredBy)
	assert.Equal(t, int64(0), rec.TotalEarnings)
	assert.False(t, rec.HasPumped)
}

func TestCreateOrUpdateUser_NoReferrer(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, nil))

	ref, err := ts.ReferrerAddress(ctx, walletA)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestCreateOrUpdateUser_SelfReferralDropped(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletA)))

	ref, err := ts.ReferrerAddress(ctx, walletA)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestReferrerAddress_UnknownWallet(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ref, err := ts.ReferrerAddress(context.Background(), walletA)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestGetUser_NotFound(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	_, err := ts.GetUser(context.Background(), walletA)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordPump_WithReferrer(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletR, nil))
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletR)))

	credited, err := ts.RecordPump(ctx, walletA, 33_333_333)
	require.NoError(t, err)
	require.NotNil(t, credited)
	assert.Equal(t, walletR, *credited)

	// Payer marked as having pumped.
	payer, err := ts.GetUser(ctx, walletA)
	require.NoError(t, err)
	assert.True(t, payer.HasPumped)

	// Referrer credited per-peer and in total by exactly the share.
	referrer, err := ts.GetUser(ctx, walletR)
	require.NoError(t, err)
	assert.Equal(t, int64(33_333_333), referrer.TotalEarnings)

	entries, err := ts.ReferralData(ctx, walletR)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, walletA, entries[0].PeerWallet)
	assert.Equal(t, int64(33_333_333), entries[0].Amount)
}

func TestRecordPump_NoReferrer(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, nil))

	credited, err := ts.RecordPump(ctx, walletA, 0)
	require.NoError(t, err)
	assert.Nil(t, credited)

	payer, err := ts.GetUser(ctx, walletA)
	require.NoError(t, err)
	assert.True(t, payer.HasPumped)
}

func TestRecordPump_UnknownPayer(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	_, err := ts.RecordPump(context.Background(), walletA, 100)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordPump_ReferrerNeverConnected(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	// walletR has no record of its own yet.
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletR)))

	credited, err := ts.RecordPump(ctx, walletA, 500)
	require.NoError(t, err)
	require.NotNil(t, credited)

	referrer, err := ts.GetUser(ctx, walletR)
	require.NoError(t, err)
	assert.Equal(t, int64(500), referrer.TotalEarnings)
}

// Two referred wallets of the same referrer credit it concurrently; the
// increments must sum rather than clobber each other.
func TestRecordPump_ConcurrentCreditsSum(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletR, nil))
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletR)))
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletB, strPtr(walletR)))

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, payer := range []string{walletA, walletB} {
		wg.Add(1)
		go func(payer string) {
			defer wg.Done()
			_, err := ts.RecordPump(ctx, payer, 1_000_000)
			errs <- err
		}(payer)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	referrer, err := ts.GetUser(ctx, walletR)
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), referrer.TotalEarnings)

	entries, err := ts.ReferralData(ctx, walletR)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordPump_RepeatedCreditsAccumulate(t *testing.T) {
	SkipIfNoTestDB(t)
	ts := NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	ctx := context.Background()
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletR, nil))
	require.NoError(t, ts.CreateOrUpdateUser(ctx, walletA, strPtr(walletR)))

	for i := 0; i < 3; i++ {
		_, err := ts.RecordPump(ctx, walletA, 100)
		require.NoError(t, err)
	}

	referrer, err := ts.GetUser(ctx, walletR)
	require.NoError(t, err)
	assert.Equal(t, int64(300), referrer.TotalEarnings)

	entries, err := ts.ReferralData(ctx, walletR)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(300), entries[0].Amount)
}
