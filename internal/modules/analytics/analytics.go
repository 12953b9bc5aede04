// Package analytics computes risk and return metrics from the portfolio
// value series and the per-class valuation roll-ups. All functions are
// pure; metrics that lack enough observations come back as NaN and are
// rendered as null by the HTTP layer.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/folioscope/folioscope/internal/domain"
	"github.com/folioscope/folioscope/internal/modules/valuation"
)

const (
	tradingDays  = 252
	riskFreeRate = 0.025

	// minObservations is the floor below which volatility and Sharpe are
	// statistically meaningless for this use.
	minObservations = 21
)

// riskWeights scores each asset class by rough historical drawdown
// behavior. Unknown classes score 0.5.
var riskWeights = map[domain.AssetClass]float64{
	domain.ClassCrypto:        1.5,
	domain.ClassEquity:        1.0,
	domain.ClassETF:           0.9,
	domain.ClassFund:          0.85,
	domain.ClassCommodity:     0.8,
	domain.ClassMineral:       0.75,
	domain.ClassPrivateEquity: 0.7,
	domain.ClassRealEstate:    0.6,
	domain.ClassPreciousMetal: 0.5,
	domain.ClassOther:         0.5,
	domain.ClassFiat:          0.1,
}

// Alert flags a portfolio composition risk.
type Alert struct {
	Severity string `json:"severity"` // high, medium, warning
	Message  string `json:"message"`
}

// Insight is a neutral observation about portfolio composition.
type Insight struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Summary bundles all metrics for one portfolio.
type Summary struct {
	Volatility    float64   `json:"-"`
	Sharpe        float64   `json:"-"`
	Concentration float64   `json:"concentration"`
	RiskScore     float64   `json:"risk_score"`
	RiskLevel     string    `json:"risk_level"`
	Alerts        []Alert   `json:"alerts"`
	Insights      []Insight `json:"insights"`
}

// Summarize computes the full metric set from a daily value series and a
// valuation.
func Summarize(values []float64, v valuation.PortfolioValuation) Summary {
	returns := DailyLogReturns(values)

	return Summary{
		Volatility:    AnnualizedVolatility(returns),
		Sharpe:        SharpeRatio(returns),
		Concentration: Concentration(v.ByClass, v.TotalValue),
		RiskScore:     RiskScore(v.ByClass, v.TotalValue),
		RiskLevel:     RiskLevel(RiskScore(v.ByClass, v.TotalValue)),
		Alerts:        BuildRiskAlerts(v.ByClass, v.TotalValue),
		Insights:      BuildDiversificationInsights(v.ByClass, v.TotalValue),
	}
}

// DailyLogReturns converts a value series into daily log returns. The
// first element is 0 so the result aligns with the input; transitions
// touching a non-positive value contribute 0.
func DailyLogReturns(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	returns := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		if values[i] > 0 && values[i-1] > 0 {
			returns[i] = math.Log(values[i] / values[i-1])
		}
	}
	return returns
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled to a trading year. NaN below the observation floor.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < minObservations {
		return math.NaN()
	}
	return stat.StdDev(returns, nil) * math.Sqrt(tradingDays)
}

// SharpeRatio is the annualized excess return over the risk-free rate per
// unit of volatility. NaN below the observation floor or when volatility
// is not positive.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < minObservations {
		return math.NaN()
	}

	vol := AnnualizedVolatility(returns)
	if !(vol > 0) {
		return math.NaN()
	}

	annualized := stat.Mean(returns, nil) * tradingDays
	return (annualized - riskFreeRate) / vol
}

// Concentration is the largest single class's share of total value, 0..1.
func Concentration(byClass map[domain.AssetClass]valuation.ClassTotals, total float64) float64 {
	if total <= 0 {
		return 0
	}

	var largest float64
	for _, totals := range byClass {
		if totals.Value > largest {
			largest = totals.Value
		}
	}
	return largest / total
}

// RiskScore is the value-weighted average of the per-class risk weights.
func RiskScore(byClass map[domain.AssetClass]valuation.ClassTotals, total float64) float64 {
	if total <= 0 {
		return 0
	}

	var score float64
	for class, totals := range byClass {
		weight, ok := riskWeights[class]
		if !ok {
			weight = 0.5
		}
		score += weight * (totals.Value / total)
	}
	return score
}

// RiskLevel buckets a risk score.
func RiskLevel(score float64) string {
	switch {
	case score >= 0.85:
		return "high"
	case score >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// BuildRiskAlerts flags concentration above the warning thresholds and
// single-class portfolios.
func BuildRiskAlerts(byClass map[domain.AssetClass]valuation.ClassTotals, total float64) []Alert {
	alerts := []Alert{}
	if total <= 0 {
		return alerts
	}

	for _, class := range sortedClasses(byClass) {
		share := byClass[class].Value / total
		switch {
		case share >= 0.7:
			alerts = append(alerts, Alert{
				Severity: "high",
				Message:  fmt.Sprintf("%.0f%% of portfolio value is in %s", share*100, class),
			})
		case share >= 0.5:
			alerts = append(alerts, Alert{
				Severity: "medium",
				Message:  fmt.Sprintf("%.0f%% of portfolio value is in %s", share*100, class),
			})
		}
	}

	if len(byClass) == 1 {
		alerts = append(alerts, Alert{
			Severity: "warning",
			Message:  "Portfolio holds a single asset class",
		})
	}

	return alerts
}

// BuildDiversificationInsights describes composition: class diversity and
// the primary allocation.
func BuildDiversificationInsights(byClass map[domain.AssetClass]valuation.ClassTotals, total float64) []Insight {
	insights := []Insight{}
	if total <= 0 || len(byClass) == 0 {
		return insights
	}

	classes := sortedClasses(byClass)

	switch {
	case len(classes) >= 5:
		insights = append(insights, Insight{
			Kind:    "diversity",
			Message: fmt.Sprintf("Well diversified across %d asset classes", len(classes)),
		})
	case len(classes) >= 3:
		insights = append(insights, Insight{
			Kind:    "diversity",
			Message: fmt.Sprintf("Moderately diversified across %d asset classes", len(classes)),
		})
	default:
		insights = append(insights, Insight{
			Kind:    "diversity",
			Message: fmt.Sprintf("Limited diversification: %d asset class(es)", len(classes)),
		})
	}

	primary := classes[0]
	var primaryShare float64
	for _, class := range classes {
		share := byClass[class].Value / total
		if share > primaryShare {
			primary = class
			primaryShare = share
		}
	}
	insights = append(insights, Insight{
		Kind:    "allocation",
		Message: fmt.Sprintf("Primary allocation: %s at %.0f%% of portfolio value", primary, primaryShare*100),
	})

	return insights
}

// sortedClasses returns the class keys in stable order.
func sortedClasses(byClass map[domain.AssetClass]valuation.ClassTotals) []domain.AssetClass {
	classes := make([]domain.AssetClass, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}
