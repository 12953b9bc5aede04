// Package resolver turns price requests into prices. Lookups are cache
// first; misses go to the provider chain for the asset class, results are
// converted to the requested currency and written back to the cache.
// Resolution never fails a batch: assets that exhaust their providers are
// simply absent from the result map.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/clients/exchangerate"
	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/pricecache"
)

// isinPattern matches the ISIN shape: two-letter country code, nine
// alphanumeric characters, one check digit.
var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// leadingNumber extracts the first numeric token from free-form provider
// output, tolerating thousands separators.
var leadingNumber = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// IsISIN reports whether an identifier has the ISIN shape. Callers trim
// and uppercase first.
func IsISIN(identifier string) bool {
	return isinPattern.MatchString(identifier)
}

// QuoteProvider fetches a single quote and reports its native currency.
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (price float64, currency string, err error)
}

// SymbolResolver turns an ISIN into a trading symbol.
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, isin string) (string, error)
}

// BatchQuoteProvider fetches prices for many coin ids in one call, quoted
// directly in the requested currency.
type BatchQuoteProvider interface {
	Name() string
	SimplePrices(ctx context.Context, ids []string, vsCurrency string) (map[string]float64, error)
}

// Estimator produces a free-form valuation from a prompt.
type Estimator interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Cache is the quotation store the resolver reads through and writes back to.
type Cache interface {
	Get(identifier string, class domain.AssetClass, currency string) (*pricecache.Quotation, error)
	Put(q pricecache.Quotation) error
	EvictOlderThan(class domain.AssetClass, age time.Duration) (int64, error)
}

// Service resolves prices for heterogeneous asset classes.
type Service struct {
	cache     Cache
	chain     []QuoteProvider
	symbols   SymbolResolver
	batch     BatchQuoteProvider
	estimator Estimator
	rateSrc   exchangerate.RateSource
	log       zerolog.Logger
}

// NewService creates a price resolver. The chain order is the fallback
// order for listed assets.
func NewService(
	cache Cache,
	chain []QuoteProvider,
	symbols SymbolResolver,
	batch BatchQuoteProvider,
	estimator Estimator,
	rateSrc exchangerate.RateSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		cache:     cache,
		chain:     chain,
		symbols:   symbols,
		batch:     batch,
		estimator: estimator,
		rateSrc:   rateSrc,
		log:       log.With().Str("service", "resolver").Logger(),
	}
}

// pendingBatch is one crypto/metal request waiting for the per-currency
// batch call.
type pendingBatch struct {
	req    PriceRequest
	coinID string
}

// Resolve prices a batch of requests. The returned map holds one entry per
// request that produced a usable price; unresolvable requests are absent.
// Rates are memoized per call so a batch fetches each currency pair once.
func (s *Service) Resolve(ctx context.Context, requests []PriceRequest) map[Key]PriceResult {
	rates := exchangerate.NewRateTable(s.rateSrc, s.log)
	results := make(map[Key]PriceResult, len(requests))
	pending := make(map[string][]pendingBatch)

	for _, req := range requests {
		req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
		key := KeyForRequest(req)
		if _, done := results[key]; done {
			continue
		}

		if !req.ForceRefresh {
			if cached := s.fromCache(req); cached != nil {
				results[key] = *cached
				continue
			}
		}

		switch {
		case req.Class.IsBatchResolved():
			id := domain.NormalizeIdentifier(req.Identifier, req.Class)
			pending[req.Currency] = append(pending[req.Currency], pendingBatch{req: req, coinID: CoinID(id)})
		case req.Class == domain.ClassRealEstate:
			results[key] = s.resolveRealEstate(ctx, req)
		case req.Class.IsListed():
			if result, ok := s.resolveListed(ctx, req, rates); ok {
				results[key] = result
			}
		default:
			// No provider covers this class; the caller degrades to cost basis.
			s.log.Debug().Str("class", string(req.Class)).Str("identifier", req.Identifier).
				Msg("No provider chain for class, skipping")
		}
	}

	s.resolveBatches(ctx, pending, results)

	return results
}

// fromCache returns a fresh cached result, or nil on miss. Real-estate rows
// tagged with the low-confidence fallback source are treated as misses so a
// later resolution can replace them with a real estimate.
func (s *Service) fromCache(req PriceRequest) *PriceResult {
	q, err := s.cache.Get(req.Identifier, req.Class, req.Currency)
	if err != nil {
		s.log.Warn().Err(err).Str("identifier", req.Identifier).Msg("Cache read failed")
		return nil
	}
	if q == nil {
		return nil
	}
	if req.Class == domain.ClassRealEstate && q.Source == "purchase_price" {
		return nil
	}
	return &PriceResult{Price: q.Price, Source: q.Source}
}

// resolveListed runs the quote chain for exchange-listed assets. ISINs are
// first translated to a trading symbol through symbol search. The first
// provider returning a positive price wins; its native currency is
// converted to the requested one before caching.
func (s *Service) resolveListed(ctx context.Context, req PriceRequest, rates *exchangerate.RateTable) (PriceResult, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Identifier))

	if IsISIN(symbol) && s.symbols != nil {
		resolved, err := s.symbols.ResolveSymbol(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("isin", symbol).Msg("Symbol search failed, trying ISIN directly")
		} else {
			symbol = resolved
		}
	}

	for _, provider := range s.chain {
		price, currency, err := provider.Quote(ctx, symbol)
		if err != nil {
			if !errors.Is(err, domain.ErrConfigurationMissing) {
				s.log.Debug().Err(err).Str("provider", provider.Name()).Str("symbol", symbol).
					Msg("Provider miss, trying next")
			}
			continue
		}
		if price <= 0 {
			continue
		}

		price *= rates.Rate(currency, req.Currency)
		s.store(req, price, provider.Name())
		return PriceResult{Price: price, Source: provider.Name()}, true
	}

	s.log.Warn().Str("identifier", req.Identifier).Str("symbol", symbol).
		Msg("All quote providers exhausted")
	return PriceResult{}, false
}

// resolveBatches issues one batched price call per target currency for all
// pending crypto and precious-metal requests.
func (s *Service) resolveBatches(ctx context.Context, pending map[string][]pendingBatch, results map[Key]PriceResult) {
	if len(pending) == 0 || s.batch == nil {
		return
	}
	for currency, entries := range pending {
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.coinID)
		}

		prices, err := s.batch.SimplePrices(ctx, ids, currency)
		if err != nil {
			s.log.Warn().Err(err).Str("currency", currency).Int("count", len(ids)).
				Msg("Batch price fetch failed")
			continue
		}

		for _, e := range entries {
			price, ok := prices[e.coinID]
			if !ok || price <= 0 {
				s.log.Debug().Str("coin_id", e.coinID).Msg("No batch price for id")
				continue
			}
			s.store(e.req, price, s.batch.Name())
			results[KeyForRequest(e.req)] = PriceResult{Price: price, Source: s.batch.Name()}
		}
	}
}

// resolveRealEstate asks the estimation provider for a market value. On any
// failure the purchase price is returned tagged as low confidence, which is
// never cached. A successful estimate is cached and triggers eviction of
// real-estate rows past the retention window.
func (s *Service) resolveRealEstate(ctx context.Context, req PriceRequest) PriceResult {
	fallback := PriceResult{Price: req.PurchasePrice, Source: "purchase_price"}

	if s.estimator == nil {
		return fallback
	}

	text, err := s.estimator.Complete(ctx, buildPropertyPrompt(req))
	if err != nil {
		s.log.Warn().Err(err).Str("identifier", req.Identifier).
			Msg("Estimation failed, falling back to purchase price")
		return fallback
	}

	price, err := parseLeadingNumber(text)
	if err != nil || price <= 0 {
		s.log.Warn().Str("identifier", req.Identifier).Str("response", truncate(text, 120)).
			Msg("Unparseable estimation response, falling back to purchase price")
		return fallback
	}

	s.store(req, price, s.estimator.Name())
	if _, err := s.cache.EvictOlderThan(domain.ClassRealEstate, pricecache.RealEstateRetention); err != nil {
		s.log.Warn().Err(err).Msg("Real-estate eviction failed")
	}

	return PriceResult{Price: price, Source: s.estimator.Name()}
}

// store writes a high-confidence result back to the cache.
func (s *Service) store(req PriceRequest, price float64, source string) {
	err := s.cache.Put(pricecache.Quotation{
		Identifier: req.Identifier,
		Class:      req.Class,
		Currency:   req.Currency,
		Price:      price,
		Source:     source,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("identifier", req.Identifier).Msg("Cache write failed")
	}
}

// buildPropertyPrompt renders the valuation prompt from whatever attributes
// the request carries.
func buildPropertyPrompt(req PriceRequest) string {
	var b strings.Builder
	b.WriteString("Estimate the current market value of the following property.\n")

	if p := req.Property; p != nil {
		if p.PropertyType != "" {
			fmt.Fprintf(&b, "Type: %s\n", p.PropertyType)
		}
		if p.Location != "" {
			fmt.Fprintf(&b, "Location: %s\n", p.Location)
		}
		if p.SquareMeters > 0 {
			fmt.Fprintf(&b, "Size: %.0f square meters\n", p.SquareMeters)
		}
		if p.IsRented {
			fmt.Fprintf(&b, "Currently rented at %.2f %s per month\n", p.MonthlyRent, req.Currency)
		}
		if p.AnnualExpenses > 0 {
			fmt.Fprintf(&b, "Annual expenses: %.2f %s\n", p.AnnualExpenses, req.Currency)
		}
	}
	if req.PurchasePrice > 0 {
		fmt.Fprintf(&b, "Purchase price: %.2f %s\n", req.PurchasePrice, req.Currency)
	}

	fmt.Fprintf(&b, "Respond with a single number: the estimated value in %s. No currency symbol, no explanation.", req.Currency)
	return b.String()
}

// parseLeadingNumber extracts the first number from provider output,
// dropping thousands separators.
func parseLeadingNumber(text string) (float64, error) {
	match := leadingNumber.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("%w: no numeric value in response", domain.ErrProviderNoData)
	}
	return strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
