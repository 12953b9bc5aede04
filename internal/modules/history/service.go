// Package history reconstructs a daily portfolio value series over the
// trailing year. Each asset's native price series is mapped onto a shared
// UTC calendar, forward-filled, scaled by quantity and converted to the
// reporting currency; the portfolio series is the day-by-day sum.
package history

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/folioscope/folioscope/internal/clients/coingecko"
	"github.com/folioscope/folioscope/internal/clients/exchangerate"
	"github.com/folioscope/folioscope/internal/clients/yahoo"
	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/modules/resolver"
)

const (
	windowDays = 365
	// MaxAssets bounds the provider fan-out for one reconstruction.
	MaxAssets = 15
)

// ChartProvider fetches a 1-year daily price series with its native currency.
type ChartProvider interface {
	DailyHistory(ctx context.Context, symbol string) (*yahoo.History, error)
}

// BatchChartProvider fetches a daily series quoted directly in the target
// currency.
type BatchChartProvider interface {
	MarketChart(ctx context.Context, id, vsCurrency string, days int) ([]coingecko.HistoryPoint, error)
}

// SymbolResolver turns an ISIN into a trading symbol.
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, isin string) (string, error)
}

// Point is one day of portfolio value in the reporting currency.
type Point struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// Service reconstructs portfolio history.
type Service struct {
	charts      ChartProvider
	batchCharts BatchChartProvider
	symbols     SymbolResolver
	rateSrc     exchangerate.RateSource
	log         zerolog.Logger
}

// NewService creates a history service.
func NewService(
	charts ChartProvider,
	batchCharts BatchChartProvider,
	symbols SymbolResolver,
	rateSrc exchangerate.RateSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		charts:      charts,
		batchCharts: batchCharts,
		symbols:     symbols,
		rateSrc:     rateSrc,
		log:         log.With().Str("service", "history").Logger(),
	}
}

// Build reconstructs the daily portfolio series. currentValues supplies the
// present valuation per asset id; assets without market history (real
// estate, fiat, private equity) contribute it as a constant, and market
// assets fall back to it when their provider series is unavailable.
// Portfolios above MaxAssets are rejected with ErrTooManyAssets.
func (s *Service) Build(ctx context.Context, assets []domain.Asset, currentValues map[string]float64, currency string) ([]Point, error) {
	if len(assets) > MaxAssets {
		return nil, fmt.Errorf("%w: %d assets exceeds limit of %d", domain.ErrTooManyAssets, len(assets), MaxAssets)
	}

	dates := dateAxis(time.Now().UTC())
	rates := exchangerate.NewRateTable(s.rateSrc, s.log)

	sums := make([]float64, len(dates))
	present := make([]bool, len(dates))

	for i := range assets {
		a := &assets[i]
		values, ok := s.assetSeries(ctx, a, dates, currentValues[a.ID], currency, rates)
		if !ok {
			continue
		}
		for day := range dates {
			if !math.IsNaN(values[day]) {
				sums[day] += values[day]
				present[day] = true
			}
		}
	}

	return collect(dates, sums, present), nil
}

// dateAxis returns the trailing window of UTC calendar dates, oldest first.
func dateAxis(now time.Time) []string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]string, windowDays)
	for i := 0; i < windowDays; i++ {
		dates[i] = today.AddDate(0, 0, i-windowDays+1).Format("2006-01-02")
	}
	return dates
}

// assetSeries builds one asset's contribution on the shared date axis.
// Days before the asset's first known value are NaN.
func (s *Service) assetSeries(ctx context.Context, a *domain.Asset, dates []string, currentValue float64, currency string, rates *exchangerate.RateTable) ([]float64, bool) {
	switch {
	case !a.Class.IsMarketPriced():
		return constantSeries(len(dates), currentValue), true
	case a.Class.IsBatchResolved():
		return s.batchSeries(ctx, a, dates, currentValue, currency)
	default:
		return s.chartSeries(ctx, a, dates, currentValue, currency, rates)
	}
}

// constantSeries fills every day with the same value.
func constantSeries(n int, value float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return values
}

// chartSeries fetches a listed asset's series from the chart provider and
// converts it from the provider's native currency.
func (s *Service) chartSeries(ctx context.Context, a *domain.Asset, dates []string, currentValue float64, currency string, rates *exchangerate.RateTable) ([]float64, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(a.PriceIdentifier()))
	if resolver.IsISIN(symbol) && s.symbols != nil {
		resolved, err := s.symbols.ResolveSymbol(ctx, symbol)
		if err == nil {
			symbol = resolved
		}
	}

	hist, err := s.charts.DailyHistory(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Chart fetch failed, using constant value")
		return constantSeries(len(dates), currentValue), currentValue > 0
	}

	rate := rates.Rate(hist.Currency, currency)
	byDate := make(map[string]float64, len(hist.Points))
	for _, p := range hist.Points {
		byDate[p.Date] = p.Close * a.Quantity * rate
	}

	return forwardFill(dates, byDate), true
}

// batchSeries fetches a crypto/metal series already quoted in the target
// currency.
func (s *Service) batchSeries(ctx context.Context, a *domain.Asset, dates []string, currentValue float64, currency string) ([]float64, bool) {
	id := resolver.CoinID(domain.NormalizeIdentifier(a.PriceIdentifier(), a.Class))

	points, err := s.batchCharts.MarketChart(ctx, id, currency, windowDays)
	if err != nil {
		s.log.Warn().Err(err).Str("coin_id", id).Msg("Market chart fetch failed, using constant value")
		return constantSeries(len(dates), currentValue), currentValue > 0
	}

	byDate := make(map[string]float64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.Price * a.Quantity
	}

	return forwardFill(dates, byDate), true
}

// forwardFill maps sparse date values onto the axis, carrying the last
// known value across gaps. Days before the first value are NaN.
func forwardFill(dates []string, byDate map[string]float64) []float64 {
	values := make([]float64, len(dates))
	last := math.NaN()
	for i, date := range dates {
		if v, ok := byDate[date]; ok {
			last = v
		}
		values[i] = last
	}
	return values
}

// collect trims the leading empty days and rounds daily sums to cents.
// The series starts at the first day with a positive sum and is gapless
// from there.
func collect(dates []string, sums []float64, present []bool) []Point {
	series := make([]Point, 0, len(dates))
	started := false
	for i := range dates {
		if !started {
			if !present[i] || sums[i] <= 0 {
				continue
			}
			started = true
		}
		series = append(series, Point{Date: dates[i], Value: math.Round(sums[i]*100) / 100})
	}
	return series
}
