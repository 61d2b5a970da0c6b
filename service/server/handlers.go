package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/pumpcam/pumpcam/service/ledger"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for user registration
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer
)

// handleRegisterUser returns a handler that registers a wallet, optionally
// with a referrer. Registration is idempotent; the referrer only sticks on
// first creation.
// POST /api/v1/users
func handleRegisterUser(store *ledger.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			WalletAddress string  `json:"wallet_address"`
			Referrer      *string `json:"referrer"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode register request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		if err := validateAddress(req.WalletAddress); err != nil {
			logger.Debug("invalid wallet address", "address", req.WalletAddress, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.Referrer != nil {
			if err := validateAddress(*req.Referrer); err != nil {
				logger.Debug("invalid referrer address", "referrer", *req.Referrer, "error", err)
				writeError(w, fmt.Sprintf("referrer: %s", err.Error()), http.StatusBadRequest)
				return
			}
		}

		if err := store.CreateOrUpdateUser(r.Context(), req.WalletAddress, req.Referrer); err != nil {
			logger.Error("failed to register user", "address", req.WalletAddress, "error", err)
			writeError(w, "failed to register user", http.StatusInternalServerError)
			return
		}

		user, err := store.GetUser(r.Context(), req.WalletAddress)
		if err != nil {
			logger.Error("failed to load registered user", "address", req.WalletAddress, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Info("user registered", "address", req.WalletAddress, "referrer", req.Referrer)
		writeJSON(w, userToResponse(user), http.StatusCreated)
	})
}

// handleGetUser returns a handler that retrieves one user record.
// GET /api/v1/users/{address}
func handleGetUser(store *ledger.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		user, err := store.GetUser(r.Context(), address)
		if err != nil {
			if errors.Is(err, ledger.ErrUserNotFound) {
				writeError(w, "user not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get user", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, userToResponse(user), http.StatusOK)
	})
}

// handleGetReferrals returns a handler that retrieves a referrer's earnings
// breakdown, most recently credited first.
// GET /api/v1/users/{address}/referrals
func handleGetReferrals(store *ledger.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		entries, err := store.ReferralData(r.Context(), address)
		if err != nil {
			logger.Error("failed to get referral data", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		var total int64
		resp := make([]referralResponse, len(entries))
		for i, entry := range entries {
			resp[i] = referralResponse{
				PeerWallet:  entry.PeerWallet,
				Lamports:    entry.Amount,
				LastUpdated: entry.LastUpdated,
			}
			total += entry.Amount
		}

		logger.Debug("referral data retrieved", "address", address, "count", len(entries))

		writeJSON(w, map[string]interface{}{
			"address":        address,
			"total_lamports": total,
			"referrals":      resp,
		}, http.StatusOK)
	})
}

type userResponse struct {
	WalletAddress string    `json:"wallet_address"`
	ReferredBy    *string   `json:"referred_by,omitempty"`
	TotalEarnings int64     `json:"total_earnings"`
	HasPumped     bool      `json:"has_pumped"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type referralResponse struct {
	PeerWallet  string    `json:"peer_wallet"`
	Lamports    int64     `json:"lamports"`
	LastUpdated time.Time `json:"last_updated"`
}

func userToResponse(user *ledger.UserRecord) userResponse {
	return userResponse{
		WalletAddress: user.WalletAddress,
		ReferredBy:    user.ReferredBy,
		TotalEarnings: user.TotalEarnings,
		HasPumped:     user.HasPumped,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return fmt.Errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("invalid characters in address: control characters not allowed")
		}
	}

	if _, err := solanago.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid address: must be a base58-encoded public key")
	}

	return nil
}
