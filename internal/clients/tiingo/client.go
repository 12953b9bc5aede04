// Package tiingo provides a client for the Tiingo IEX quote endpoint,
// the first provider in the listed-asset quote chain.
package tiingo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/domain"
)

// Client is the Tiingo API client.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Tiingo client. An empty apiKey disables the
// provider: every call fails with ErrConfigurationMissing and the resolver
// moves on to the next provider in the chain.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.tiingo.com/iex",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "tiingo").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Name identifies this provider in source tags and logs.
func (c *Client) Name() string { return "tiingo" }

// Quote fetches the latest IEX price for a ticker symbol.
// Tiingo quotes are USD.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, string, error) {
	if c.apiKey == "" {
		return 0, "", fmt.Errorf("%w: tiingo", domain.ErrConfigurationMissing)
	}

	u := fmt.Sprintf("%s/%s?token=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: tiingo request failed: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("%w: tiingo returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	// The IEX endpoint answers with a single-element array.
	var payload []struct {
		TngoLast  *float64 `json:"tngoLast"`
		Last      *float64 `json:"last"`
		PrevClose *float64 `json:"prevClose"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, "", fmt.Errorf("%w: failed to parse tiingo response: %w", domain.ErrProviderNoData, err)
	}
	if len(payload) == 0 {
		return 0, "", fmt.Errorf("%w: tiingo returned no rows for %s", domain.ErrProviderNoData, symbol)
	}

	for _, p := range []*float64{payload[0].TngoLast, payload[0].Last, payload[0].PrevClose} {
		if p != nil && *p > 0 {
			c.log.Debug().Str("symbol", symbol).Float64("price", *p).Msg("Fetched quote")
			return *p, "USD", nil
		}
	}

	return 0, "", fmt.Errorf("%w: tiingo returned no usable price for %s", domain.ErrProviderNoData, symbol)
}
