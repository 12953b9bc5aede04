// Package finnhub provides a client for the Finnhub quote and symbol
// search endpoints. It is the second provider in the listed-asset quote
// chain and the symbol-search provider used to resolve ISINs to tickers.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/domain"
)

// SymbolMatch is a single symbol-search result.
type SymbolMatch struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
}

// Client is the Finnhub API client.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Finnhub client. An empty apiKey disables the provider.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://finnhub.io/api/v1",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Name identifies this provider in source tags and logs.
func (c *Client) Name() string { return "finnhub" }

// Quote fetches the current price for a ticker symbol.
// Finnhub quotes are USD.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, string, error) {
	if c.apiKey == "" {
		return 0, "", fmt.Errorf("%w: finnhub", domain.ErrConfigurationMissing)
	}

	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	var payload struct {
		Current float64 `json:"c"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return 0, "", err
	}

	if payload.Current <= 0 {
		return 0, "", fmt.Errorf("%w: finnhub returned no usable price for %s", domain.ErrProviderNoData, symbol)
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", payload.Current).Msg("Fetched quote")
	return payload.Current, "USD", nil
}

// Search resolves a free-form query (typically an ISIN) to candidate
// trading symbols.
func (c *Client) Search(ctx context.Context, query string) ([]SymbolMatch, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: finnhub", domain.ErrConfigurationMissing)
	}

	u := fmt.Sprintf("%s/search?q=%s&token=%s", c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))

	var payload struct {
		Result []SymbolMatch `json:"result"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}

	return payload.Result, nil
}

// ResolveSymbol maps an ISIN to a trading symbol, preferring an
// exchange-listed match (symbol carrying an exchange suffix) over the
// first hit. Returns the query unchanged when nothing matches.
func (c *Client) ResolveSymbol(ctx context.Context, isin string) (string, error) {
	matches, err := c.Search(ctx, strings.ToUpper(strings.TrimSpace(isin)))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no symbol found for %s", domain.ErrProviderNoData, isin)
	}

	for _, m := range matches {
		if strings.Contains(m.Symbol, ".") {
			return m.Symbol, nil
		}
	}

	return matches[0].Symbol, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: finnhub request failed: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: finnhub returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse finnhub response: %w", domain.ErrProviderNoData, err)
	}

	return nil
}
