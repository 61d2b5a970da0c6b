package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Solana configuration
	SolanaRPCURL string

	// Price oracle configuration
	PriceURL     string
	PriceTimeout time.Duration

	// Pump configuration
	RecipientWallet    string
	PumpAmountUSD      float64
	ReferralPercentage uint64
	FeeBufferLamports  uint64
	ConfirmTimeout     time.Duration
	ConfirmPollEvery   time.Duration
}

const (
	// DefaultPriceURL is the CoinGecko simple-price endpoint for SOL/USD.
	DefaultPriceURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

	defaultPumpAmountUSD      = 10.0
	defaultReferralPercentage = 50
	defaultFeeBufferLamports  = 10000
)

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	// Price oracle configuration
	cfg.PriceURL = getEnvOrDefault("PRICE_URL", DefaultPriceURL)
	priceTimeout, err := parseDuration("PRICE_TIMEOUT", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PriceTimeout = priceTimeout
	}

	// Pump configuration
	cfg.RecipientWallet = os.Getenv("RECIPIENT_WALLET")
	if cfg.RecipientWallet == "" {
		errs = append(errs, fmt.Errorf("RECIPIENT_WALLET is required"))
	} else if _, err := solana.PublicKeyFromBase58(cfg.RecipientWallet); err != nil {
		errs = append(errs, fmt.Errorf("RECIPIENT_WALLET: invalid address %q: %w", cfg.RecipientWallet, err))
	}

	pumpAmount, err := parseFloat("PUMP_AMOUNT_USD", defaultPumpAmountUSD)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PumpAmountUSD = pumpAmount
	}

	referralPct, err := parseUint("REFERRAL_PERCENTAGE", defaultReferralPercentage)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ReferralPercentage = referralPct
	}

	feeBuffer, err := parseUint("FEE_BUFFER_LAMPORTS", defaultFeeBufferLamports)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FeeBufferLamports = feeBuffer
	}

	confirmTimeout, err := parseDuration("CONFIRM_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	confirmPoll, err := parseDuration("CONFIRM_POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmPollEvery = confirmPoll
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, cfg.Validate()
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.RecipientWallet == "" {
		errs = append(errs, fmt.Errorf("RecipientWallet is required"))
	}

	if c.PumpAmountUSD <= 0 {
		errs = append(errs, fmt.Errorf("PumpAmountUSD must be positive, got %v", c.PumpAmountUSD))
	}

	if c.ReferralPercentage > 100 {
		errs = append(errs, fmt.Errorf("ReferralPercentage must be in [0,100], got %d", c.ReferralPercentage))
	}

	if c.ConfirmTimeout < time.Second {
		errs = append(errs, fmt.Errorf("ConfirmTimeout must be at least 1 second"))
	}

	if c.ConfirmPollEvery <= 0 {
		errs = append(errs, fmt.Errorf("ConfirmPollEvery must be positive"))
	}

	if c.ConfirmPollEvery > c.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("ConfirmPollEvery (%v) cannot be greater than ConfirmTimeout (%v)",
			c.ConfirmPollEvery, c.ConfirmTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
