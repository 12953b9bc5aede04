// Package yahoo provides a client for the Yahoo Finance chart API.
// It is the last provider in the listed-asset quote chain and the
// historical-quote provider for the history reconstructor.
package yahoo

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

const userAgent = "Mozilla/5.0 (compatible; folioscope/1.0; +https://github.com)"

// HistoryPoint is a single daily close in the provider's native currency.
type HistoryPoint struct {
	Date  string // YYYY-MM-DD, UTC
	Close float64
}

// History is a provider-native daily series.
type History struct {
	Points   []HistoryPoint
	Currency string
}

// Client is the Yahoo Finance chart client. No credential required.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Name identifies this provider in source tags and logs.
func (c *Client) Name() string { return "yahoo" }

// chartResponse mirrors the subset of the chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Quote fetches the latest market price and its native currency.
func (c *Client) Quote(ctx context.Context, symbol string) (float64, string, error) {
	payload, err := c.fetchChart(ctx, symbol, "1d")
	if err != nil {
		return 0, "", err
	}

	result := payload.Chart.Result[0]
	if result.Meta.RegularMarketPrice <= 0 {
		return 0, "", fmt.Errorf("%w: yahoo returned no usable price for %s", domain.ErrProviderNoData, symbol)
	}

	currency := strings.ToUpper(result.Meta.Currency)
	if currency == "" {
		currency = "USD"
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", result.Meta.RegularMarketPrice).Msg("Fetched quote")
	return result.Meta.RegularMarketPrice, currency, nil
}

// DailyHistory fetches one year of daily closes for a symbol.
// Null closes (holidays, partial sessions) are dropped.
func (c *Client) DailyHistory(ctx context.Context, symbol string) (*History, error) {
	payload, err := c.fetchChart(ctx, symbol, "1y")
	if err != nil {
		return nil, err
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo chart missing quote data for %s", domain.ErrProviderNoData, symbol)
	}

	closes := result.Indicators.Quote[0].Close
	if len(result.Timestamp) != len(closes) {
		return nil, fmt.Errorf("%w: yahoo chart timestamp/close length mismatch for %s", domain.ErrProviderNoData, symbol)
	}

	currency := strings.ToUpper(result.Meta.Currency)
	if currency == "" {
		currency = "USD"
	}

	points := make([]HistoryPoint, 0, len(closes))
	for i, close := range closes {
		if close == nil || *close <= 0 {
			continue
		}
		points = append(points, HistoryPoint{
			Date:  time.Unix(result.Timestamp[i], 0).UTC().Format("2006-01-02"),
			Close: *close,
		})
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: yahoo returned too few points for %s", domain.ErrProviderNoData, symbol)
	}

	return &History{Points: points, Currency: currency}, nil
}

func (c *Client) fetchChart(ctx context.Context, symbol, rng string) (*chartResponse, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&range=%s", c.baseURL, url.PathEscape(symbol), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo request failed: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yahoo response: %w", domain.ErrProviderNoData, err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no result for %s", domain.ErrProviderNoData, symbol)
	}

	return &payload, nil
}
