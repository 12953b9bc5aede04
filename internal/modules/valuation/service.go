// Package valuation aggregates resolved prices into a portfolio valuation.
// The aggregation itself is a pure function of the assets, the price map,
// the rate table and the clock; the service wires it to the resolver.
package valuation

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/clients/exchangerate"
	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/modules/resolver"
)

const daysPerYear = 365.25

// RateProvider converts between currencies.
type RateProvider interface {
	Rate(from, to string) float64
}

// PriceResolver resolves a batch of price requests.
type PriceResolver interface {
	Resolve(ctx context.Context, requests []resolver.PriceRequest) map[resolver.Key]resolver.PriceResult
}

// AssetValuation is the per-asset breakdown included in the response.
type AssetValuation struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Class        domain.AssetClass `json:"asset_class"`
	CurrentPrice float64           `json:"current_price"`
	CurrentValue float64           `json:"current_value"`
	Cost         float64           `json:"cost"`
	ROI          float64           `json:"roi"`
	Source       string            `json:"source,omitempty"`
}

// ClassTotals is the value/cost roll-up for one asset class.
type ClassTotals struct {
	Value float64 `json:"value"`
	Cost  float64 `json:"cost"`
}

// PortfolioValuation is the full valuation in the reporting currency.
type PortfolioValuation struct {
	Currency   string                           `json:"currency"`
	TotalValue float64                          `json:"total_value"`
	TotalCost  float64                          `json:"total_cost"`
	ROI        float64                          `json:"roi"`
	ByClass    map[domain.AssetClass]ClassTotals `json:"by_class"`
	Assets     []AssetValuation                 `json:"assets"`
}

// Service values portfolios.
type Service struct {
	resolver PriceResolver
	rateSrc  exchangerate.RateSource
	log      zerolog.Logger
}

// NewService creates a valuation service.
func NewService(priceResolver PriceResolver, rateSrc exchangerate.RateSource, log zerolog.Logger) *Service {
	return &Service{
		resolver: priceResolver,
		rateSrc:  rateSrc,
		log:      log.With().Str("service", "valuation").Logger(),
	}
}

// Value resolves prices for all market-priced assets and aggregates the
// portfolio in the given reporting currency. Unresolvable assets degrade
// to cost basis; the valuation itself never fails.
func (s *Service) Value(ctx context.Context, assets []domain.Asset, currency string) PortfolioValuation {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	for i := range assets {
		assets[i].EnsureID()
	}

	prices := s.resolver.Resolve(ctx, BuildRequests(assets, currency))
	rates := exchangerate.NewRateTable(s.rateSrc, s.log)

	return Compute(assets, prices, rates, currency, time.Now())
}

// BuildRequests maps assets to price requests. Fiat and private equity are
// valued without a provider, so they get no request.
func BuildRequests(assets []domain.Asset, currency string) []resolver.PriceRequest {
	requests := make([]resolver.PriceRequest, 0, len(assets))
	for i := range assets {
		a := &assets[i]
		if a.Class == domain.ClassFiat || a.Class == domain.ClassPrivateEquity {
			continue
		}

		req := resolver.PriceRequest{
			Identifier: a.PriceIdentifier(),
			Class:      a.Class,
			Currency:   currency,
		}
		if a.Class == domain.ClassRealEstate {
			req.Property = a.Property
			req.PurchasePrice = a.PurchasePrice
		}
		requests = append(requests, req)
	}
	return requests
}

// Compute aggregates assets and resolved prices into a valuation. Pure:
// no clock reads, no I/O. Class totals are accumulated first and the grand
// totals summed from them, so the per-class breakdown always adds up to
// the total exactly.
func Compute(
	assets []domain.Asset,
	prices map[resolver.Key]resolver.PriceResult,
	rates RateProvider,
	currency string,
	now time.Time,
) PortfolioValuation {
	byClass := make(map[domain.AssetClass]ClassTotals)
	perAsset := make([]AssetValuation, 0, len(assets))

	for i := range assets {
		a := &assets[i]
		cost := a.PurchasePrice * a.Quantity * rates.Rate(a.Currency, currency)

		var value, price float64
		var source string

		switch {
		case a.Class == domain.ClassFiat:
			value = fiatValue(a, now) * rates.Rate(a.Currency, currency)
		default:
			result, ok := prices[resolver.KeyFor(a.PriceIdentifier(), a.Class, currency)]
			if ok && result.Price > 0 {
				price = result.Price
				source = result.Source
				value = price * a.Quantity
			} else {
				value = cost
			}
		}

		totals := byClass[a.Class]
		totals.Value += value
		totals.Cost += cost
		byClass[a.Class] = totals

		perAsset = append(perAsset, AssetValuation{
			ID:           a.ID,
			Name:         a.Name,
			Class:        a.Class,
			CurrentPrice: price,
			CurrentValue: value,
			Cost:         cost,
			ROI:          roi(value, cost),
			Source:       source,
		})
	}

	var totalValue, totalCost float64
	for _, totals := range byClass {
		totalValue += totals.Value
		totalCost += totals.Cost
	}

	return PortfolioValuation{
		Currency:   currency,
		TotalValue: totalValue,
		TotalCost:  totalCost,
		ROI:        roi(totalValue, totalCost),
		ByClass:    byClass,
		Assets:     perAsset,
	}
}

// fiatValue applies simple interest growth to a deposit over the holding
// period. Deposits without a purchase date earn nothing yet.
func fiatValue(a *domain.Asset, now time.Time) float64 {
	rate := a.InterestRate()
	if rate == 0 || a.PurchaseDate.IsZero() {
		return a.Quantity
	}

	years := now.Sub(a.PurchaseDate).Hours() / 24 / daysPerYear
	if years < 0 {
		years = 0
	}
	return a.Quantity * (1 + rate/100*years)
}

// roi returns the percentage gain over cost, 0 when there is no cost basis.
func roi(value, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return (value - cost) / cost * 100
}
