// Package ledger owns the persisted per-wallet referral records.
//
// The store is the only writer of UserRecords. Referral credits use atomic
// SQL increments inside one transaction, so concurrent pumps crediting the
// same referrer always sum instead of clobbering each other.
package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pumpcam/pumpcam/service/metrics"
)

//go:embed schema.sql
var schemaSQL string

// ErrUserNotFound is returned when a wallet has no UserRecord yet.
var ErrUserNotFound = errors.New("user not found")

// UserRecord is the persisted state of one wallet.
type UserRecord struct {
	WalletAddress string
	ReferredBy    *string // set at most once, at creation
	TotalEarnings int64   // lamports credited as a referrer, monotonically non-decreasing
	HasPumped     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReferralEntry is one row of a referrer's earnings breakdown.
type ReferralEntry struct {
	PeerWallet  string
	Amount      int64 // lamports, monotonically non-decreasing
	LastUpdated time.Time
}

// Store provides ledger operations backed by PostgreSQL.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics, logger *slog.Logger) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
		logger:  logger,
	}
}

// EnsureSchema creates the ledger tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return nil
}

// CreateOrUpdateUser registers a wallet. The insert is idempotent: if the
// record already exists nothing changes, so referred_by keeps the value set
// at first creation. A wallet can never be its own referrer; such a referrer
// argument is dropped.
func (s *Store) CreateOrUpdateUser(ctx context.Context, wallet string, referrer *string) error {
	if referrer != nil && *referrer == wallet {
		s.logger.WarnContext(ctx, "ignoring self-referral", "wallet", wallet)
		referrer = nil
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (wallet_address, referred_by)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO NOTHING`,
		wallet, referrer,
	)
	s.record("create_or_update_user", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", wallet, err)
	}

	s.logger.DebugContext(ctx, "user registered", "wallet", wallet, "has_referrer", referrer != nil)
	return nil
}

// GetUser retrieves a wallet's record.
func (s *Store) GetUser(ctx context.Context, wallet string) (*UserRecord, error) {
	start := time.Now()
	var rec UserRecord
	err := s.pool.QueryRow(ctx, `
		SELECT wallet_address, referred_by, total_earnings, has_pumped, created_at, updated_at
		FROM users
		WHERE wallet_address = $1`,
		wallet,
	).Scan(&rec.WalletAddress, &rec.ReferredBy, &rec.TotalEarnings, &rec.HasPumped, &rec.CreatedAt, &rec.UpdatedAt)
	s.record("get_user", err, time.Since(start))

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", wallet, err)
	}
	return &rec, nil
}

// ReferrerAddress returns the wallet that referred the given wallet, or nil
// if it has none (or no record at all).
func (s *Store) ReferrerAddress(ctx context.Context, wallet string) (*string, error) {
	rec, err := s.GetUser(ctx, wallet)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.ReferredBy, nil
}

// ReferralData flattens a referrer's per-peer earnings for display.
// Order is not significant; rows come back newest-credit first.
func (s *Store) ReferralData(ctx context.Context, wallet string) ([]ReferralEntry, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT referred_address, total_amount, last_updated
		FROM referral_credits
		WHERE referrer_address = $1
		ORDER BY last_updated DESC`,
		wallet,
	)
	s.record("referral_data", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to query referral data for %s: %w", wallet, err)
	}
	defer rows.Close()

	var entries []ReferralEntry
	for rows.Next() {
		var e ReferralEntry
		if err := rows.Scan(&e.PeerWallet, &e.Amount, &e.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan referral row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read referral rows: %w", err)
	}

	return entries, nil
}

// RecordPump folds a confirmed pump into the ledger: the payer is marked as
// having pumped, and if a referrer is on record it is credited referrerShare
// lamports both per-peer and in total. The whole update is one transaction
// with increment semantics. Returns the credited referrer, if any.
//
// referrerShare is computed once by the orchestrator's split; the store never
// re-derives it, so the split and the credit always agree.
func (s *Store) RecordPump(ctx context.Context, payer string, referrerShare int64) (*string, error) {
	if referrerShare < 0 {
		return nil, fmt.Errorf("referrer share must be non-negative, got %d", referrerShare)
	}

	start := time.Now()
	referrer, err := s.recordPumpTx(ctx, payer, referrerShare)
	s.record("record_pump", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "pump recorded",
		"payer", payer,
		"referrer_share", referrerShare,
		"credited", referrer != nil,
	)
	return referrer, nil
}

func (s *Store) recordPumpTx(ctx context.Context, payer string, referrerShare int64) (*string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var referrer *string
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET has_pumped = TRUE, updated_at = now()
		WHERE wallet_address = $1
		RETURNING referred_by`,
		payer,
	).Scan(&referrer)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payer %s: %w", payer, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark payer %s: %w", payer, err)
	}

	if referrer != nil && referrerShare > 0 {
		// The referrer may never have connected; credits still accrue
		// against a freshly created record.
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (wallet_address)
			VALUES ($1)
			ON CONFLICT (wallet_address) DO NOTHING`,
			*referrer,
		); err != nil {
			return nil, fmt.Errorf("failed to ensure referrer record %s: %w", *referrer, err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO referral_credits (referrer_address, referred_address, total_amount, last_updated)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (referrer_address, referred_address) DO UPDATE
			SET total_amount = referral_credits.total_amount + EXCLUDED.total_amount,
			    last_updated = now()`,
			*referrer, payer, referrerShare,
		); err != nil {
			return nil, fmt.Errorf("failed to credit referral for %s: %w", *referrer, err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users
			SET total_earnings = total_earnings + $2, updated_at = now()
			WHERE wallet_address = $1`,
			*referrer, referrerShare,
		); err != nil {
			return nil, fmt.Errorf("failed to increment earnings for %s: %w", *referrer, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	if referrer != nil && referrerShare > 0 {
		return referrer, nil
	}
	return nil, nil
}

func (s *Store) record(operation string, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordLedgerOp(operation, status, duration.Seconds())
}
