package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	balance     uint64
	blockhash   solana.Hash
	lastValid   uint64
	sendSig     solana.Signature
	blockHeight uint64

	// statuses are returned one per GetSignatureStatuses call; the last
	// entry repeats once the slice is exhausted.
	statuses []*rpc.SignatureStatusesResult
	calls    int

	err error
}

func (m *mockRPCClient) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &rpc.GetBalanceResult{Value: m.balance}, nil
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            m.blockhash,
			LastValidBlockHeight: m.lastValid,
		},
	}, nil
}

func (m *mockRPCClient) SendRawTransactionWithOpts(ctx context.Context, serialized []byte, opts rpc.TransactionOpts) (solana.Signature, error) {
	if m.err != nil {
		return solana.Signature{}, m.err
	}
	return m.sendSig, nil
}

func (m *mockRPCClient) GetSignatureStatuses(ctx context.Context, search bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls
	if idx >= len(m.statuses) {
		idx = len(m.statuses) - 1
	}
	m.calls++
	var status *rpc.SignatureStatusesResult
	if idx >= 0 {
		status = m.statuses[idx]
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{status},
	}, nil
}

func (m *mockRPCClient) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	return m.blockHeight, nil
}

func newTestGateway(mock *mockRPCClient) *Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGateway(mock, 10*time.Millisecond, nil, logger)
}

var testSig = solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

func TestBalance(t *testing.T) {
	mock := &mockRPCClient{balance: 123_456_789}
	gw := newTestGateway(mock)

	balance, err := gw.Balance(context.Background(), testPayer)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456_789), balance)
}

func TestBalance_RPCError(t *testing.T) {
	mock := &mockRPCClient{err: errors.New("rpc down")}
	gw := newTestGateway(mock)

	_, err := gw.Balance(context.Background(), testPayer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc down")
}

func TestLatestBlockhash(t *testing.T) {
	mock := &mockRPCClient{blockhash: testBlockhash, lastValid: 5000}
	gw := newTestGateway(mock)

	bh, err := gw.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testBlockhash, bh.Hash)
	assert.Equal(t, uint64(5000), bh.LastValidBlockHeight)
}

func TestAwaitConfirmation_Confirmed(t *testing.T) {
	mock := &mockRPCClient{
		blockHeight: 100,
		statuses: []*rpc.SignatureStatusesResult{
			nil, // first poll: not yet visible
			{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed, Slot: 42},
		},
	}
	gw := newTestGateway(mock)

	err := gw.AwaitConfirmation(context.Background(), testSig, 5000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mock.calls, 3)
}

func TestAwaitConfirmation_OnChainError(t *testing.T) {
	mock := &mockRPCClient{
		blockHeight: 100,
		statuses: []*rpc.SignatureStatusesResult{
			{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		},
	}
	gw := newTestGateway(mock)

	err := gw.AwaitConfirmation(context.Background(), testSig, 5000)
	require.Error(t, err)

	var onChain *OnChainError
	require.ErrorAs(t, err, &onChain)
	assert.Equal(t, testSig, onChain.Signature)
	assert.Contains(t, onChain.Detail, "InstructionError")
}

func TestAwaitConfirmation_BlockhashExpired(t *testing.T) {
	mock := &mockRPCClient{
		blockHeight: 6000, // past lastValidBlockHeight
		statuses:    []*rpc.SignatureStatusesResult{nil},
	}
	gw := newTestGateway(mock)

	err := gw.AwaitConfirmation(context.Background(), testSig, 5000)
	require.ErrorIs(t, err, ErrBlockhashExpired)
}

func TestAwaitConfirmation_ContextDeadline(t *testing.T) {
	mock := &mockRPCClient{
		blockHeight: 100,
		statuses:    []*rpc.SignatureStatusesResult{nil},
	}
	gw := newTestGateway(mock)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gw.AwaitConfirmation(ctx, testSig, 5000)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit(t *testing.T) {
	mock := &mockRPCClient{sendSig: testSig, blockhash: testBlockhash}
	gw := newTestGateway(mock)

	tx, err := BuildTransfer(TransferParams{
		Payer:             testPayer,
		Recipient:         testRecipient,
		RecipientLamports: 100,
		Blockhash:         Blockhash{Hash: testBlockhash},
	})
	require.NoError(t, err)

	// An unsigned transaction still serializes; signature verification is
	// the network's job, not the gateway's.
	sig, err := gw.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, testSig, sig)
}
