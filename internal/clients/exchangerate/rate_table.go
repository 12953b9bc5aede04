package exchangerate

import (
	"strings"

	"github.com/rs/zerolog"
)

// FallbackToEUR holds documented default conversion factors into EUR, used
// when the rate provider is unavailable. Values are deliberately rough;
// a wrong-by-a-few-percent estimate beats a failed valuation.
var FallbackToEUR = map[string]float64{
	"USD": 0.92,
	"GBP": 1.17,
	"CHF": 1.05,
	"CAD": 0.68,
}

// RateSource fetches the full rate map for a source currency.
type RateSource interface {
	Latest(from string) (map[string]float64, error)
}

// RateTable memoizes conversion rates for the lifetime of one resolution
// batch. Each source currency is fetched at most once; failed fetches fall
// back to the hardcoded defaults.
type RateTable struct {
	source RateSource
	log    zerolog.Logger
	rates  map[string]map[string]float64
	failed map[string]bool
}

// NewRateTable creates a rate table backed by the given source.
// A nil source skips fetching entirely and always uses fallbacks.
func NewRateTable(source RateSource, log zerolog.Logger) *RateTable {
	return &RateTable{
		source: source,
		log:    log.With().Str("component", "rate_table").Logger(),
		rates:  make(map[string]map[string]float64),
		failed: make(map[string]bool),
	}
}

// Rate returns the multiplier converting a price in `from` into `to`.
// Identity pairs return 1. Unknown pairs under provider failure return 1
// so the caller degrades to the unconverted price rather than failing.
func (t *RateTable) Rate(from, to string) float64 {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" || from == to {
		return 1.0
	}

	if rates, ok := t.lookup(from); ok {
		if rate, ok := rates[to]; ok && rate > 0 {
			return rate
		}
	}

	return t.fallback(from, to)
}

// lookup fetches and memoizes the rate map for a source currency.
func (t *RateTable) lookup(from string) (map[string]float64, bool) {
	if rates, ok := t.rates[from]; ok {
		return rates, true
	}
	if t.failed[from] || t.source == nil {
		return nil, false
	}

	rates, err := t.source.Latest(from)
	if err != nil {
		t.log.Warn().Err(err).Str("from", from).Msg("Rate fetch failed, using fallback defaults")
		t.failed[from] = true
		return nil, false
	}

	t.rates[from] = rates
	return rates, true
}

func (t *RateTable) fallback(from, to string) float64 {
	if to == "EUR" {
		if rate, ok := FallbackToEUR[from]; ok {
			return rate
		}
	}
	if from == "EUR" {
		if rate, ok := FallbackToEUR[to]; ok && rate > 0 {
			return 1 / rate
		}
	}

	t.log.Warn().Str("from", from).Str("to", to).Msg("No rate available, using 1.0")
	return 1.0
}
