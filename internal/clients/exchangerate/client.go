// Package exchangerate provides currency conversion into the reporting
// currency. Rates are fetched fresh per resolution batch and never
// persisted; a documented hardcoded default covers provider outages.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/domain"
)

// Client for exchangerate-api.com
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new exchangerate-api.com client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://api.exchangerate-api.com/v4/latest",
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "exchangerate-api").Logger(),
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Latest fetches the full rate map for a source currency.
func (c *Client) Latest(from string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, strings.ToUpper(from))
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: rate request failed: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: rate API returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse rate response: %w", domain.ErrProviderNoData, err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("%w: empty rate map for %s", domain.ErrProviderNoData, from)
	}

	return result.Rates, nil
}
