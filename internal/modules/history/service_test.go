package history

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioscope/folioscope/internal/clients/coingecko"
	"github.com/folioscope/folioscope/internal/clients/yahoo"
	"github.com/folioscope/folioscope/internal/domain"
)

// daysAgo formats a UTC date n days back, matching the service's axis.
func daysAgo(n int) string {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -n).Format("2006-01-02")
}

type fakeCharts struct {
	hist *yahoo.History
	err  error
}

func (f *fakeCharts) DailyHistory(_ context.Context, _ string) (*yahoo.History, error) {
	return f.hist, f.err
}

type fakeBatchCharts struct {
	points []coingecko.HistoryPoint
	err    error
}

func (f *fakeBatchCharts) MarketChart(_ context.Context, _, _ string, _ int) ([]coingecko.HistoryPoint, error) {
	return f.points, f.err
}

func newTestService(charts ChartProvider, batch BatchChartProvider) *Service {
	return NewService(charts, batch, nil, nil, zerolog.Nop())
}

func TestBuildRejectsTooManyAssets(t *testing.T) {
	assets := make([]domain.Asset, MaxAssets+1)
	for i := range assets {
		assets[i] = domain.Asset{ID: "a", Class: domain.ClassFiat, Quantity: 1, Currency: "EUR"}
	}

	svc := newTestService(nil, nil)
	series, err := svc.Build(context.Background(), assets, nil, "EUR")

	require.ErrorIs(t, err, domain.ErrTooManyAssets)
	assert.Nil(t, series)
}

func TestBuildConstantValueClasses(t *testing.T) {
	assets := []domain.Asset{
		{ID: "re1", Class: domain.ClassRealEstate, Quantity: 1, Currency: "EUR"},
	}
	values := map[string]float64{"re1": 300000}

	svc := newTestService(nil, nil)
	series, err := svc.Build(context.Background(), assets, values, "EUR")

	require.NoError(t, err)
	require.Len(t, series, 365)
	assert.Equal(t, 300000.0, series[0].Value)
	assert.Equal(t, 300000.0, series[364].Value)
	assert.Equal(t, daysAgo(0), series[364].Date)
}

func TestBuildForwardFillsGaps(t *testing.T) {
	charts := &fakeCharts{hist: &yahoo.History{
		Currency: "EUR",
		Points: []yahoo.HistoryPoint{
			{Date: daysAgo(4), Close: 100},
			{Date: daysAgo(2), Close: 110},
		},
	}}
	assets := []domain.Asset{{
		ID: "e1", Class: domain.ClassEquity, Quantity: 2, Currency: "EUR",
		Listing: &domain.ListingAttributes{Ticker: "SAP"},
	}}

	svc := newTestService(charts, nil)
	series, err := svc.Build(context.Background(), assets, nil, "EUR")

	require.NoError(t, err)
	require.Len(t, series, 5) // starts at first priced day

	assert.Equal(t, daysAgo(4), series[0].Date)
	assert.Equal(t, 200.0, series[0].Value)
	assert.Equal(t, 200.0, series[1].Value) // gap carries the last value
	assert.Equal(t, 220.0, series[2].Value)
	assert.Equal(t, 220.0, series[4].Value)
}

func TestBuildConvertsNativeCurrency(t *testing.T) {
	charts := &fakeCharts{hist: &yahoo.History{
		Currency: "USD",
		Points:   []yahoo.HistoryPoint{{Date: daysAgo(1), Close: 100}},
	}}
	assets := []domain.Asset{{
		ID: "u1", Class: domain.ClassEquity, Quantity: 1, Currency: "USD",
		Listing: &domain.ListingAttributes{Ticker: "MSFT"},
	}}

	svc := newTestService(charts, nil)
	series, err := svc.Build(context.Background(), assets, nil, "EUR")

	require.NoError(t, err)
	require.Len(t, series, 2)
	// Nil rate source degrades to the documented USD->EUR default.
	assert.InDelta(t, 92.0, series[0].Value, 1e-9)
}

func TestBuildSumsAcrossAssets(t *testing.T) {
	batch := &fakeBatchCharts{points: []coingecko.HistoryPoint{
		{Date: daysAgo(2), Price: 60000},
		{Date: daysAgo(0), Price: 61000},
	}}
	assets := []domain.Asset{
		{ID: "re1", Class: domain.ClassRealEstate, Quantity: 1, Currency: "EUR"},
		{ID: "c1", Class: domain.ClassCrypto, Quantity: 0.5, Currency: "EUR",
			Crypto: &domain.CryptoAttributes{Symbol: "BTC"}},
	}
	values := map[string]float64{"re1": 100000}

	svc := newTestService(nil, batch)
	series, err := svc.Build(context.Background(), assets, values, "EUR")

	require.NoError(t, err)
	require.Len(t, series, 365)

	// Before the crypto series begins only the constant asset contributes.
	assert.Equal(t, 100000.0, series[0].Value)
	assert.Equal(t, 130000.0, series[362].Value)
	assert.Equal(t, 130000.0, series[363].Value)
	assert.Equal(t, 130500.0, series[364].Value)
}

func TestBuildChartFailureFallsBackToConstant(t *testing.T) {
	charts := &fakeCharts{err: errors.New("upstream down")}
	assets := []domain.Asset{{
		ID: "e1", Class: domain.ClassEquity, Quantity: 1, Currency: "EUR",
		Listing: &domain.ListingAttributes{Ticker: "SAP"},
	}}
	values := map[string]float64{"e1": 1234.5}

	svc := newTestService(charts, nil)
	series, err := svc.Build(context.Background(), assets, values, "EUR")

	require.NoError(t, err)
	require.Len(t, series, 365)
	assert.Equal(t, 1234.5, series[0].Value)
}

func TestBuildRoundsToCents(t *testing.T) {
	charts := &fakeCharts{hist: &yahoo.History{
		Currency: "EUR",
		Points:   []yahoo.HistoryPoint{{Date: daysAgo(0), Close: 10.0 / 3.0}},
	}}
	assets := []domain.Asset{{
		ID: "e1", Class: domain.ClassEquity, Quantity: 3, Currency: "EUR",
		Listing: &domain.ListingAttributes{Ticker: "SAP"},
	}}

	svc := newTestService(charts, nil)
	series, err := svc.Build(context.Background(), assets, nil, "EUR")

	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 10.0, series[0].Value)
}

func TestBuildEmptyPortfolio(t *testing.T) {
	svc := newTestService(nil, nil)
	series, err := svc.Build(context.Background(), nil, nil, "EUR")

	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestForwardFillLaw(t *testing.T) {
	dates := []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04"}
	byDate := map[string]float64{"2026-01-02": 5}

	values := forwardFill(dates, byDate)

	assert.True(t, math.IsNaN(values[0]))
	assert.Equal(t, 5.0, values[1])
	assert.Equal(t, 5.0, values[2])
	assert.Equal(t, 5.0, values[3])
}
