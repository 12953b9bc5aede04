package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioscope/folioscope/internal/domain"
)

func TestQuote_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		w.Write([]byte(`{"c": 181.25, "h": 183.0, "l": 180.1, "o": 182.0, "pc": 180.5}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(server.URL)

	price, currency, err := client.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 181.25, price)
	assert.Equal(t, "USD", currency)
}

func TestQuote_ZeroPriceIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Finnhub returns zeros for unknown symbols rather than an error.
		w.Write([]byte(`{"c": 0, "h": 0, "l": 0, "o": 0, "pc": 0}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(server.URL)

	_, _, err := client.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrProviderNoData)
}

func TestQuote_MissingAPIKey(t *testing.T) {
	client := NewClient("", zerolog.Nop())

	_, _, err := client.Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestResolveSymbol_PrefersExchangeListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "IE00B4L5Y983", r.URL.Query().Get("q"))
		w.Write([]byte(`{"count": 2, "result": [
			{"symbol": "IWDA", "displaySymbol": "IWDA", "description": "ISHARES CORE MSCI WORLD", "type": "ETP"},
			{"symbol": "IWDA.AS", "displaySymbol": "IWDA.AS", "description": "ISHARES CORE MSCI WORLD", "type": "ETP"}
		]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(server.URL)

	symbol, err := client.ResolveSymbol(context.Background(), "ie00b4l5y983")
	require.NoError(t, err)
	assert.Equal(t, "IWDA.AS", symbol)
}

func TestResolveSymbol_FirstMatchWithoutSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 1, "result": [
			{"symbol": "AAPL", "displaySymbol": "AAPL", "description": "APPLE INC", "type": "Common Stock"}
		]}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(server.URL)

	symbol, err := client.ResolveSymbol(context.Background(), "US0378331005")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)
}

func TestResolveSymbol_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 0, "result": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(server.URL)

	_, err := client.ResolveSymbol(context.Background(), "XX0000000000")
	assert.ErrorIs(t, err, domain.ErrProviderNoData)
}
