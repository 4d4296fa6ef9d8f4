package optimization

import (
	"math"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/performance"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/risk"
)

// ExpectedReturns estimates each asset's expected annual return as the
// annualized mean of its historical daily returns. This is a deliberate
// modeling assumption: historical means are noisy forecasts, but they keep
// the optimizer's inputs reproducible from the price series alone.
//
// Returns are computed over the inner join of the tickers' date sets so the
// vector is consistent with CovarianceMatrix over the same series.
func ExpectedReturns(series domain.PriceSeries, tickers []string, periodsPerYear float64) map[string]float64 {
	_, aligned := risk.AlignedReturns(series, tickers)

	out := make(map[string]float64, len(tickers))
	for _, ticker := range tickers {
		returns := aligned[ticker]
		if len(returns) == 0 {
			out[ticker] = math.NaN()
			continue
		}
		mean := 0.0
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))
		out[ticker] = mean * periodsPerYear
	}
	return out
}

// AssetMetrics evaluates each asset standalone: annualized mean return and
// annualized volatility over the aligned return window.
func AssetMetrics(series domain.PriceSeries, tickers []string, periodsPerYear float64) []AssetMetric {
	_, aligned := risk.AlignedReturns(series, tickers)
	expected := ExpectedReturns(series, tickers, periodsPerYear)

	metrics := make([]AssetMetric, 0, len(tickers))
	for _, ticker := range tickers {
		metrics = append(metrics, AssetMetric{
			Ticker:     ticker,
			Return:     expected[ticker],
			Volatility: performance.AnnualizedVolatility(aligned[ticker], periodsPerYear),
		})
	}
	return metrics
}

// portfolioReturn computes mu'w for weights in ticker order.
func portfolioReturn(mu, w []float64) float64 {
	var total float64
	for i := range w {
		total += mu[i] * w[i]
	}
	return total
}

// portfolioVolatility computes sqrt(w'Sigma w) for weights in ticker order.
func portfolioVolatility(cov [][]float64, w []float64) float64 {
	var variance float64
	for i := range w {
		for j := range w {
			variance += w[i] * w[j] * cov[i][j]
		}
	}
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// evaluate builds a FrontierPoint for a weight vector.
func evaluate(in Inputs, w []float64) FrontierPoint {
	ret := portfolioReturn(in.ExpectedReturns, w)
	vol := portfolioVolatility(in.Covariance.Data, w)

	sharpe := math.NaN()
	if vol > 0 {
		sharpe = (ret - in.RiskFreeRate) / vol
	}

	weights := make(map[string]float64, len(in.Tickers))
	for i, ticker := range in.Tickers {
		weights[ticker] = w[i]
	}
	return FrontierPoint{Return: ret, Volatility: vol, Sharpe: sharpe, Weights: weights}
}
