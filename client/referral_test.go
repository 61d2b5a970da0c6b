package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet   = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	testReferrer = "7S3P4HxJpyyigGzodYwHtCxZyUQe9JiBMHyRWXArAaKv"
)

func TestRegister_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, testWallet, body["wallet_address"])
		assert.Equal(t, testReferrer, body["referrer"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"wallet_address": testWallet,
			"referred_by":    testReferrer,
			"total_earnings": 0,
			"has_pumped":     false,
			"created_at":     time.Now(),
			"updated_at":     time.Now(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	referrer := testReferrer
	user, err := client.Register(context.Background(), testWallet, &referrer)
	require.NoError(t, err)
	assert.Equal(t, testWallet, user.WalletAddress)
	require.NotNil(t, user.ReferredBy)
	assert.Equal(t, testReferrer, *user.ReferredBy)
}

func TestRegister_NoReferrerOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		_, hasReferrer := body["referrer"]
		assert.False(t, hasReferrer)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"wallet_address": testWallet,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	user, err := client.Register(context.Background(), testWallet, nil)
	require.NoError(t, err)
	assert.Nil(t, user.ReferredBy)
}

func TestRegister_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid address: must be a base58-encoded public key",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Register(context.Background(), "invalid", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestGetUser_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/users/"+testWallet, r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"wallet_address": testWallet,
			"total_earnings": 33333333,
			"has_pumped":     true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	user, err := client.GetUser(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, testWallet, user.WalletAddress)
	assert.Equal(t, int64(33333333), user.TotalEarnings)
	assert.True(t, user.HasPumped)
}

func TestGetUser_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "user not found",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.GetUser(context.Background(), testWallet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user not found")
}

func TestGetReferrals_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/users/"+testReferrer+"/referrals", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"address":        testReferrer,
			"total_lamports": 66666666,
			"referrals": []map[string]interface{}{
				{"peer_wallet": testWallet, "lamports": 66666666, "last_updated": time.Now()},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	summary, err := client.GetReferrals(context.Background(), testReferrer)
	require.NoError(t, err)
	assert.Equal(t, testReferrer, summary.Address)
	assert.Equal(t, int64(66666666), summary.TotalLamports)
	require.Len(t, summary.Referrals, 1)
	assert.Equal(t, testWallet, summary.Referrals[0].PeerWallet)
}

func TestParseErrorResponse_NonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.GetUser(context.Background(), testWallet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assert.NoError(t, client.Health(context.Background()))
}
