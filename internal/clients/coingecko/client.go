// Package coingecko provides a client for the CoinGecko market-data API,
// used for crypto and tokenized precious-metal pricing. Spot prices are
// fetched in one batched call per target currency to respect the shared
// rate limit. No credential required.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/domain"
)

// HistoryPoint is a single daily price in the requested currency.
type HistoryPoint struct {
	Date  string // YYYY-MM-DD, UTC
	Price float64
}

// Client is the CoinGecko API client.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.coingecko.com/api/v3",
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Name identifies this provider in source tags and logs.
func (c *Client) Name() string { return "coingecko" }

// SimplePrices fetches current prices for a set of coin ids in one call.
// Returns a map of coin id to price in the requested currency; ids the
// provider doesn't know are simply absent.
func (c *Client) SimplePrices(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	// Deduplicate and sort for a stable request URL.
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Strings(unique)

	vsCurrency = strings.ToLower(vsCurrency)
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL,
		url.QueryEscape(strings.Join(unique, ",")),
		url.QueryEscape(vsCurrency),
	)

	var payload map[string]map[string]float64
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(payload))
	for id, byCurrency := range payload {
		if price, ok := byCurrency[vsCurrency]; ok && price > 0 {
			prices[id] = price
		}
	}

	c.log.Debug().
		Int("requested", len(unique)).
		Int("resolved", len(prices)).
		Str("vs_currency", vsCurrency).
		Msg("Fetched batch prices")

	return prices, nil
}

// MarketChart fetches a daily price series for a coin id in the requested
// currency over the trailing number of days.
func (c *Client) MarketChart(ctx context.Context, id, vsCurrency string, days int) ([]HistoryPoint, error) {
	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%d",
		c.baseURL,
		url.PathEscape(id),
		url.QueryEscape(strings.ToLower(vsCurrency)),
		days,
	)

	var payload struct {
		Prices [][2]float64 `json:"prices"` // [ms timestamp, price]
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, err
	}
	if len(payload.Prices) < 2 {
		return nil, fmt.Errorf("%w: coingecko returned too few points for %s", domain.ErrProviderNoData, id)
	}

	sort.Slice(payload.Prices, func(i, j int) bool {
		return payload.Prices[i][0] < payload.Prices[j][0]
	})

	points := make([]HistoryPoint, 0, len(payload.Prices))
	for _, p := range payload.Prices {
		if p[1] <= 0 {
			continue
		}
		points = append(points, HistoryPoint{
			Date:  time.UnixMilli(int64(p[0])).UTC().Format("2006-01-02"),
			Price: p[1],
		})
	}

	return points, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: coingecko request failed: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: coingecko returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse coingecko response: %w", domain.ErrProviderNoData, err)
	}

	return nil
}
