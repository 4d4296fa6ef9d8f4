// Package performance derives return and risk-adjusted performance metrics
// from portfolio value trajectories. All functions are pure: they never
// mutate their inputs and undefined statistics come back as NaN, never as a
// fabricated zero.
package performance

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/risk"
)

// TradingDaysPerYear is the default annualization factor for daily series.
const TradingDaysPerYear = 252

// DailyReturns computes per-period fractional returns from a value series.
// The result has length len(values)-1; the first observation has no prior
// reference.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = values[i]/values[i-1] - 1
	}
	return returns
}

// CumulativeReturn is the total fractional return over the whole series.
// Scale-invariant: multiplying every value by the same positive constant
// leaves it unchanged.
func CumulativeReturn(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return math.NaN()
	}
	return values[len(values)-1]/values[0] - 1
}

// AnnualizedReturn compounds the cumulative return to a yearly rate.
func AnnualizedReturn(values []float64, periodsPerYear float64) float64 {
	numPeriods := float64(len(values) - 1)
	if numPeriods <= 0 {
		return math.NaN()
	}
	cum := CumulativeReturn(values)
	if math.IsNaN(cum) {
		return math.NaN()
	}
	return math.Pow(1+cum, periodsPerYear/numPeriods) - 1
}

// AnnualizedReturnFromReturns compounds a per-period return series to a
// yearly rate.
func AnnualizedReturnFromReturns(returns []float64, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return math.Pow(growth, periodsPerYear/float64(len(returns))) - 1
}

// AnnualizedVolatility scales the sample standard deviation (N-1 denominator)
// of per-period returns by the square root of periodsPerYear.
func AnnualizedVolatility(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear)
}

// SharpeRatio is the annualized excess return per unit of volatility.
// Returns NaN when volatility is zero or undefined.
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	vol := AnnualizedVolatility(returns, periodsPerYear)
	if vol == 0 || math.IsNaN(vol) {
		return math.NaN()
	}
	return (AnnualizedReturnFromReturns(returns, periodsPerYear) - riskFreeRate) / vol
}

// SortinoRatio is the Sharpe variant that penalizes only downside
// volatility: the denominator is the annualized downside deviation below a
// zero target. Returns NaN when there is no downside deviation.
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	downside := risk.DownsideDeviation(returns, 0) * math.Sqrt(periodsPerYear)
	if downside == 0 || math.IsNaN(downside) {
		return math.NaN()
	}
	return (AnnualizedReturnFromReturns(returns, periodsPerYear) - riskFreeRate) / downside
}

// Drawdown describes the worst peak-to-trough decline of a value series.
// MaxDrawdown is reported as a non-positive fraction (-0.25 = a 25% decline);
// it is exactly 0 for a monotonically non-decreasing series.
type Drawdown struct {
	MaxDrawdown float64    `json:"max_drawdown"`
	PeakDate    time.Time  `json:"peak_date"`
	TroughDate  time.Time  `json:"trough_date"`
	Recovery    *time.Time `json:"recovery_date,omitempty"`
}

// MaxDrawdown returns the magnitude of the worst decline from a running peak
// as a non-positive fraction.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := (v - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// DrawdownProfile computes the maximum drawdown together with its peak,
// trough and (if reached) recovery dates.
func DrawdownProfile(series domain.ValueSeries) Drawdown {
	if len(series) == 0 {
		return Drawdown{MaxDrawdown: math.NaN()}
	}

	peakIdx, runningPeakIdx := 0, 0
	troughIdx := 0
	maxDD := 0.0
	for i, p := range series {
		if p.Value > series[runningPeakIdx].Value {
			runningPeakIdx = i
		}
		dd := (p.Value - series[runningPeakIdx].Value) / series[runningPeakIdx].Value
		if dd < maxDD {
			maxDD = dd
			troughIdx = i
			peakIdx = runningPeakIdx
		}
	}

	result := Drawdown{
		MaxDrawdown: maxDD,
		PeakDate:    series[peakIdx].Date,
		TroughDate:  series[troughIdx].Date,
	}

	// Recovery: first date after the trough at or above the prior peak.
	peakValue := series[peakIdx].Value
	for _, p := range series[troughIdx:] {
		if p.Value >= peakValue && maxDD < 0 {
			recovery := p.Date
			result.Recovery = &recovery
			break
		}
	}

	return result
}

// Summary bundles the standard performance statistics of a value series.
type Summary struct {
	CumulativeReturn     float64  `json:"cumulative_return"`
	AnnualizedReturn     float64  `json:"annualized_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	SharpeRatio          float64  `json:"sharpe_ratio"`
	SortinoRatio         float64  `json:"sortino_ratio"`
	MaxDrawdown          Drawdown `json:"max_drawdown"`
	Periods              int      `json:"periods"`
}

// Summarize computes the full performance summary for a value series.
func Summarize(series domain.ValueSeries, riskFreeRate, periodsPerYear float64) Summary {
	values := series.Values()
	returns := DailyReturns(values)
	return Summary{
		CumulativeReturn:     CumulativeReturn(values),
		AnnualizedReturn:     AnnualizedReturn(values, periodsPerYear),
		AnnualizedVolatility: AnnualizedVolatility(returns, periodsPerYear),
		SharpeRatio:          SharpeRatio(returns, riskFreeRate, periodsPerYear),
		SortinoRatio:         SortinoRatio(returns, riskFreeRate, periodsPerYear),
		MaxDrawdown:          DrawdownProfile(series),
		Periods:              len(series),
	}
}
