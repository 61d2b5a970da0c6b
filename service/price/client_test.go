package price

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAssetPriceUSD_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"solana":{"usd":150.25}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil, newTestLogger())

	rate, err := client.AssetPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.25, rate)
}

func TestAssetPriceUSD_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil, newTestLogger())

	_, err := client.AssetPriceUSD(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestAssetPriceUSD_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil, newTestLogger())

	_, err := client.AssetPriceUSD(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestAssetPriceUSD_MissingAsset(t *testing.T) {
	// Valid JSON but no solana key: decodes to a zero rate, which is rejected.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":90000}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil, newTestLogger())

	_, err := client.AssetPriceUSD(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive rate")
}

func TestAssetPriceUSD_NegativeRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"usd":-1}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil, newTestLogger())

	_, err := client.AssetPriceUSD(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive rate")
}

func TestAssetPriceUSD_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.AssetPriceUSD(ctx)
	require.Error(t, err)
}
