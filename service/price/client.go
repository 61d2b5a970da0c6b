// Package price fetches the current SOL/USD rate from a public quote service.
//
// The rate is intentionally never cached: a pump always reprices against a
// fresh quote, and a fetch failure aborts the pump before any funds move.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pumpcam/pumpcam/service/metrics"
)

// Oracle provides the current USD price of the network's native asset.
type Oracle interface {
	AssetPriceUSD(ctx context.Context) (float64, error)
}

// Client fetches SOL/USD quotes from the CoinGecko simple-price endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a price oracle client for the given quote URL.
// The timeout bounds each request; if metrics is nil, no metrics are recorded.
func NewClient(url string, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger,
	}
}

// quoteResponse matches the CoinGecko simple-price payload:
// {"solana":{"usd":150.42}}
type quoteResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

// AssetPriceUSD performs a single quote fetch. There is no retry and no
// fallback rate; callers abort on error.
func (c *Client) AssetPriceUSD(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		c.recordFetch("error", duration)
		c.logger.ErrorContext(ctx, "price fetch failed", "url", c.url, "error", err)
		return 0, fmt.Errorf("price fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFetch("error", duration)
		c.logger.ErrorContext(ctx, "price fetch returned non-OK status",
			"url", c.url,
			"status", resp.StatusCode,
		)
		return 0, fmt.Errorf("price fetch returned status %d", resp.StatusCode)
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		c.recordFetch("error", duration)
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	if quote.Solana.USD <= 0 {
		c.recordFetch("error", duration)
		return 0, fmt.Errorf("price fetch returned non-positive rate: %v", quote.Solana.USD)
	}

	c.recordFetch("success", duration)
	c.logger.DebugContext(ctx, "fetched asset price", "usd", quote.Solana.USD)

	return quote.Solana.USD, nil
}

func (c *Client) recordFetch(status string, duration float64) {
	if c.metrics != nil {
		c.metrics.RecordPriceFetch(status, duration)
	}
}
