// Package risk derives tail-risk measures and cross-asset dependence
// structure from return series. VaR is historical-simulation (empirical
// percentile), never parametric; statistics with insufficient data come back
// as NaN rather than a fabricated zero.
package risk

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
)

// ValueAtRisk returns the (1-confidence) empirical percentile of the return
// distribution: sort ascending and take the value at rank ceil((1-c)*n).
// Reported as a (typically negative) fractional return.
func ValueAtRisk(returns []float64, confidence float64) float64 {
	n := len(returns)
	if n == 0 || confidence <= 0 || confidence >= 1 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	rank := int(math.Ceil((1 - confidence) * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// ConditionalVaR is the mean of all returns at or below the VaR threshold:
// the expected loss in the tail.
func ConditionalVaR(returns []float64, confidence float64) float64 {
	threshold := ValueAtRisk(returns, confidence)
	if math.IsNaN(threshold) {
		return math.NaN()
	}
	sum, count := 0.0, 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// DownsideDeviation is sqrt(mean(min(r-target, 0)^2)) over all periods.
// Only deviations below target contribute, but the mean is taken over the
// full sample.
func DownsideDeviation(returns []float64, target float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	sumSq := 0.0
	for _, r := range returns {
		if d := r - target; d < 0 {
			sumSq += d * d
		}
	}
	return math.Sqrt(sumSq / float64(len(returns)))
}

// Beta measures an asset's sensitivity to a benchmark over date-aligned
// return series of equal length. NaN when fewer than 2 observations or the
// benchmark has zero variance.
func Beta(assetReturns, benchmarkReturns []float64) float64 {
	if len(assetReturns) != len(benchmarkReturns) || len(assetReturns) < 2 {
		return math.NaN()
	}
	benchVar := stat.Variance(benchmarkReturns, nil)
	if benchVar == 0 {
		return math.NaN()
	}
	return stat.Covariance(assetReturns, benchmarkReturns, nil) / benchVar
}

// Matrix is a square matrix indexed by ticker pairs.
type Matrix struct {
	Tickers []string    `json:"tickers"`
	Data    [][]float64 `json:"data"`
}

// At returns the entry for a ticker pair.
func (m Matrix) At(a, b string) float64 {
	ai, bi := -1, -1
	for i, t := range m.Tickers {
		if t == a {
			ai = i
		}
		if t == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return math.NaN()
	}
	return m.Data[ai][bi]
}

// AlignedReturns computes per-ticker daily returns over the inner join of
// the tickers' date sets: dates missing for any ticker are dropped before
// differencing, never filled. The returned dates are the aligned price dates
// (returns reference consecutive aligned dates).
func AlignedReturns(series domain.PriceSeries, tickers []string) ([]time.Time, map[string][]float64) {
	if len(tickers) == 0 {
		return nil, nil
	}

	// Count date occurrences; a date common to all tickers survives.
	counts := make(map[time.Time]int)
	for _, ticker := range tickers {
		for _, p := range series[ticker] {
			counts[p.Date]++
		}
	}
	var dates []time.Time
	for date, c := range counts {
		if c == len(tickers) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	returns := make(map[string][]float64, len(tickers))
	for _, ticker := range tickers {
		prices := make([]float64, len(dates))
		for i, date := range dates {
			price, _ := series.PriceOn(ticker, date)
			prices[i] = price
		}
		r := make([]float64, 0, len(prices))
		for i := 1; i < len(prices); i++ {
			r = append(r, prices[i]/prices[i-1]-1)
		}
		returns[ticker] = r
	}

	return dates, returns
}

// CorrelationMatrix is the pairwise Pearson correlation of daily returns
// over the date-aligned intersection. Pairs with fewer than 2 overlapping
// observations are NaN; the diagonal is 1 wherever defined.
func CorrelationMatrix(series domain.PriceSeries, tickers []string) Matrix {
	_, returns := AlignedReturns(series, tickers)
	n := len(tickers)
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ri := returns[tickers[i]]
		for j := i; j < n; j++ {
			rj := returns[tickers[j]]
			var corr float64
			switch {
			case len(ri) < 2 || len(rj) < 2:
				corr = math.NaN()
			case i == j:
				corr = 1.0
			default:
				corr = stat.Correlation(ri, rj, nil)
			}
			data[i][j] = corr
			data[j][i] = corr
		}
	}

	return Matrix{Tickers: append([]string(nil), tickers...), Data: data}
}

// CovarianceMatrix is the sample covariance (N-1 denominator) of daily
// returns over the date-aligned intersection, annualized by periodsPerYear.
func CovarianceMatrix(series domain.PriceSeries, tickers []string, periodsPerYear float64) Matrix {
	_, returns := AlignedReturns(series, tickers)
	n := len(tickers)
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		ri := returns[tickers[i]]
		for j := i; j < n; j++ {
			rj := returns[tickers[j]]
			var cov float64
			if len(ri) < 2 || len(rj) < 2 {
				cov = math.NaN()
			} else {
				cov = stat.Covariance(ri, rj, nil) * periodsPerYear
			}
			data[i][j] = cov
			data[j][i] = cov
		}
	}

	return Matrix{Tickers: append([]string(nil), tickers...), Data: data}
}
